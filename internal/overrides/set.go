package overrides

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	assignmentSeparatorConstant       = "="
	trueLiteralConstant               = "true"
	falseLiteralConstant              = "false"
	invalidAssignmentTemplateConstant = "override %q must be name=value"
	invalidValueTypeTemplateConstant  = "override %s must be a string or boolean, got %T"
)

var (
	// ErrInvalidAssignment indicates an override that is not name=value.
	ErrInvalidAssignment = errors.New("invalid override assignment")
	// ErrInvalidValue indicates an override value that is neither a string nor a boolean.
	ErrInvalidValue = errors.New("invalid override value")
)

// Value is a version or ref string, or a boolean marker that is never written.
type Value struct {
	text   string
	flag   bool
	isFlag bool
}

// Version constructs a string override value.
func Version(text string) Value {
	return Value{text: text}
}

// Flag constructs a boolean marker.
func Flag(flag bool) Value {
	return Value{flag: flag, isFlag: true}
}

// IsFlag reports whether the value is a boolean marker.
func (value Value) IsFlag() bool {
	return value.isFlag
}

// Text returns the version string; ok is false for boolean markers.
func (value Value) Text() (string, bool) {
	if value.isFlag {
		return "", false
	}
	return value.text, true
}

// String renders the value for logs and plans.
func (value Value) String() string {
	if value.isFlag {
		return strconv.FormatBool(value.flag)
	}
	return value.text
}

// MarshalYAML renders flags as booleans and versions as strings.
func (value Value) MarshalYAML() (any, error) {
	if value.isFlag {
		return value.flag, nil
	}
	return value.text, nil
}

// Set maps package names to override values.
type Set map[string]Value

// With returns a copy of the set with name assigned.
func (set Set) With(name string, value Value) Set {
	derived := make(Set, len(set)+1)
	for existingName, existingValue := range set {
		derived[existingName] = existingValue
	}
	derived[name] = value
	return derived
}

// Merge returns a copy of the set overlaid with other.
func (set Set) Merge(other Set) Set {
	derived := make(Set, len(set)+len(other))
	for name, value := range set {
		derived[name] = value
	}
	for name, value := range other {
		derived[name] = value
	}
	return derived
}

// Versions drops boolean markers and returns the string entries.
func (set Set) Versions() map[string]string {
	versions := make(map[string]string, len(set))
	for name, value := range set {
		if text, isText := value.Text(); isText {
			versions[name] = text
		}
	}
	return versions
}

// Names lists the package names in lexical order.
func (set Set) Names() []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseAssignment parses "name=value". The values true and false become boolean markers.
func ParseAssignment(raw string) (string, Value, error) {
	rawName, rawValue, found := strings.Cut(strings.TrimSpace(raw), assignmentSeparatorConstant)
	name := strings.TrimSpace(rawName)
	if !found || len(name) == 0 {
		return "", Value{}, fmt.Errorf(invalidAssignmentTemplateConstant+": %w", raw, ErrInvalidAssignment)
	}
	trimmedValue := strings.TrimSpace(rawValue)
	switch trimmedValue {
	case trueLiteralConstant:
		return name, Flag(true), nil
	case falseLiteralConstant:
		return name, Flag(false), nil
	default:
		return name, Version(trimmedValue), nil
	}
}

// ParseAssignments parses every assignment into a Set. Later assignments win.
func ParseAssignments(assignments []string) (Set, error) {
	set := Set{}
	for _, assignment := range assignments {
		name, value, parseError := ParseAssignment(assignment)
		if parseError != nil {
			return nil, parseError
		}
		set[name] = value
	}
	return set, nil
}

// FromMap builds a Set from decoded configuration values.
func FromMap(raw map[string]any) (Set, error) {
	set := make(Set, len(raw))
	for name, rawValue := range raw {
		switch typed := rawValue.(type) {
		case string:
			set[name] = Version(typed)
		case bool:
			set[name] = Flag(typed)
		default:
			return nil, fmt.Errorf(invalidValueTypeTemplateConstant+": %w", name, rawValue, ErrInvalidValue)
		}
	}
	return set, nil
}
