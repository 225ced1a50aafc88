package tasks

import (
	"context"
	"fmt"
	"strings"

	gateerrors "github.com/tyemirov/ecogate/internal/errors"
)

const (
	actionDescriptionConstant         = "<action>"
	taskSubjectConstant               = "task"
	invalidTaskTemplateConstant       = "invalid task, expected string or function but got %T: %v"
	invalidTaskEntryTemplateConstant  = "invalid task at index %d, expected string or function but got %T: %v"
	absentTaskDescriptionConstant     = "<absent>"
	specificationSeparatorConstant    = " && "
	emptySpecificationMessageConstant = "<none>"
	scriptKeyConstant                 = "script"
	commandKeyConstant                = "command"
)

// Kind discriminates the shapes a Task can take.
type Kind int

const (
	// KindAbsent marks a placeholder task that is skipped.
	KindAbsent Kind = iota
	// KindText is resolved at run time against the declared scripts.
	KindText
	// KindScript always runs through the package manager.
	KindScript
	// KindCommand always runs as a literal command.
	KindCommand
	// KindAction invokes a Go function.
	KindAction
)

// Action is a task implemented in Go.
type Action func(executionContext context.Context) error

// Task is one lifecycle step. The zero Task is absent.
type Task struct {
	kind   Kind
	text   string
	action Action
}

// Text builds a task resolved against the project's scripts when run.
func Text(text string) Task {
	return Task{kind: KindText, text: text}
}

// Script builds a task that always runs "<agent> run <text>".
func Script(text string) Task {
	return Task{kind: KindScript, text: text}
}

// Command builds a task that always runs text as a literal command.
func Command(text string) Task {
	return Task{kind: KindCommand, text: text}
}

// FromAction wraps a Go function. A nil function yields an absent task.
func FromAction(action Action) Task {
	if action == nil {
		return Task{}
	}
	return Task{kind: KindAction, action: action}
}

// Kind reports the task shape.
func (task Task) Kind() Kind {
	return task.kind
}

// IsAbsent reports whether running the task is a no-op.
func (task Task) IsAbsent() bool {
	switch task.kind {
	case KindText, KindScript, KindCommand:
		return len(strings.TrimSpace(task.text)) == 0
	case KindAction:
		return task.action == nil
	default:
		return true
	}
}

// String describes the task for logs and errors.
func (task Task) String() string {
	switch task.kind {
	case KindText, KindScript, KindCommand:
		return strings.TrimSpace(task.text)
	case KindAction:
		return actionDescriptionConstant
	default:
		return absentTaskDescriptionConstant
	}
}

// MarshalYAML renders text tasks as their command text and keyed tasks as a single-entry map.
func (task Task) MarshalYAML() (any, error) {
	if task.IsAbsent() {
		return nil, nil
	}
	switch task.kind {
	case KindScript:
		return map[string]string{scriptKeyConstant: task.String()}, nil
	case KindCommand:
		return map[string]string{commandKeyConstant: task.String()}, nil
	default:
		return task.String(), nil
	}
}

// Specification is an ordered list of tasks.
type Specification []Task

// Configured reports whether at least one task would run.
func (specification Specification) Configured() bool {
	for _, task := range specification {
		if !task.IsAbsent() {
			return true
		}
	}
	return false
}

// String joins the runnable tasks for summaries.
func (specification Specification) String() string {
	descriptions := make([]string, 0, len(specification))
	for _, task := range specification {
		if task.IsAbsent() {
			continue
		}
		descriptions = append(descriptions, task.String())
	}
	if len(descriptions) == 0 {
		return emptySpecificationMessageConstant
	}
	return strings.Join(descriptions, specificationSeparatorConstant)
}

// ParseSpecification normalizes a decoded configuration value into a Specification.
// Strings become Text tasks; nil entries become absent tasks.
// A map with a single "script" or "command" key pins how the task runs.
func ParseSpecification(raw any) (Specification, error) {
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case Specification:
		return typed, nil
	case Task:
		return Specification{typed}, nil
	case []Task:
		return Specification(typed), nil
	case string:
		return Specification{Text(typed)}, nil
	case map[string]any:
		task, parseError := parseKeyedEntry(typed)
		if parseError != nil {
			return nil, gateerrors.WrapMessage(gateerrors.OperationConfig, taskSubjectConstant, gateerrors.ErrTaskInvalid, fmt.Sprintf(invalidTaskTemplateConstant, raw, raw))
		}
		return Specification{task}, nil
	case Action:
		return Specification{FromAction(typed)}, nil
	case func(context.Context) error:
		return Specification{FromAction(typed)}, nil
	case []string:
		specification := make(Specification, 0, len(typed))
		for _, text := range typed {
			specification = append(specification, Text(text))
		}
		return specification, nil
	case []any:
		specification := make(Specification, 0, len(typed))
		for entryIndex, entry := range typed {
			task, parseError := parseEntry(entry)
			if parseError != nil {
				return nil, gateerrors.WrapMessage(gateerrors.OperationConfig, taskSubjectConstant, gateerrors.ErrTaskInvalid, fmt.Sprintf(invalidTaskEntryTemplateConstant, entryIndex, entry, entry))
			}
			specification = append(specification, task)
		}
		return specification, nil
	default:
		return nil, gateerrors.WrapMessage(gateerrors.OperationConfig, taskSubjectConstant, gateerrors.ErrTaskInvalid, fmt.Sprintf(invalidTaskTemplateConstant, raw, raw))
	}
}

func parseEntry(entry any) (Task, error) {
	switch typed := entry.(type) {
	case nil:
		return Task{}, nil
	case string:
		return Text(typed), nil
	case map[string]any:
		return parseKeyedEntry(typed)
	case Task:
		return typed, nil
	case Action:
		return FromAction(typed), nil
	case func(context.Context) error:
		return FromAction(typed), nil
	default:
		return Task{}, gateerrors.ErrTaskInvalid
	}
}

func parseKeyedEntry(entry map[string]any) (Task, error) {
	if len(entry) != 1 {
		return Task{}, gateerrors.ErrTaskInvalid
	}
	for key, value := range entry {
		text, isText := value.(string)
		if !isText {
			return Task{}, gateerrors.ErrTaskInvalid
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case scriptKeyConstant:
			return Script(text), nil
		case commandKeyConstant:
			return Command(text), nil
		}
	}
	return Task{}, gateerrors.ErrTaskInvalid
}
