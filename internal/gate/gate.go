package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	gateerrors "github.com/tyemirov/ecogate/internal/errors"
	"github.com/tyemirov/ecogate/internal/execshell"
	"github.com/tyemirov/ecogate/internal/manifest"
	"github.com/tyemirov/ecogate/internal/overrides"
	"github.com/tyemirov/ecogate/internal/packagemanager"
	"github.com/tyemirov/ecogate/internal/reposync"
	"github.com/tyemirov/ecogate/internal/tasks"
)

// DefaultPinnedDependency receives the release version when no other name is configured.
const DefaultPinnedDependency = "@webcontainer/api"

const (
	suiteFieldNameConstant                   = "suite"
	stageFieldNameConstant                   = "stage"
	statusFieldNameConstant                  = "status"
	durationFieldNameConstant                = "duration"
	directoryFieldNameConstant               = "directory"
	agentFieldNameConstant                   = "agent"
	stageFinishedMessageConstant             = "stage finished"
	stageFailedMessageConstant               = "stage failed"
	runFinishedMessageConstant               = "gate run finished"
	stageFinishedTemplateConstant            = "%s: %s %s (%s)"
	stageFailedTemplateConstant              = "%s: %s failed after %s: %v"
	runFinishedTemplateConstant              = "%s: gate run finished in %s (%s, %s)"
	workspaceRequiredMessageConstant         = "workspace is required"
	loggerNotConfiguredMessageConstant       = "gate logger not configured"
	synchronizerNotConfiguredMessageConstant = "gate synchronizer not configured"
	applicatorNotConfiguredMessageConstant   = "gate override applicator not configured"
	taskRunnerNotConfiguredMessageConstant   = "gate task runner not configured"
	workspaceSubjectConstant                 = "workspace"
)

var (
	// ErrLoggerNotConfigured indicates the gate was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrSynchronizerNotConfigured indicates the gate was constructed without a synchronizer.
	ErrSynchronizerNotConfigured = errors.New(synchronizerNotConfiguredMessageConstant)
	// ErrApplicatorNotConfigured indicates the gate was constructed without an override applicator.
	ErrApplicatorNotConfigured = errors.New(applicatorNotConfiguredMessageConstant)
	// ErrTaskRunnerNotConfigured indicates the gate was constructed without a task runner.
	ErrTaskRunnerNotConfigured = errors.New(taskRunnerNotConfiguredMessageConstant)
)

// RepositorySynchronizer brings the suite checkout up to date.
type RepositorySynchronizer interface {
	Synchronize(executionContext context.Context, runContext execshell.RunContext, ref reposync.RepoRef) (reposync.Result, error)
}

// OverrideApplicator rewrites the manifest and installs dependencies.
type OverrideApplicator interface {
	Apply(executionContext context.Context, runContext execshell.RunContext, document *manifest.Manifest, set overrides.Set, agentVersion string) (overrides.Outcome, error)
}

// TaskRunner executes lifecycle task specifications.
type TaskRunner interface {
	Run(executionContext context.Context, runContext execshell.RunContext, agent packagemanager.Identity, specification tasks.Specification, scripts map[string]string) error
}

// StageObserver receives stage and run outcomes, typically for metrics.
type StageObserver interface {
	ObserveStage(suite string, stage string, status string, duration time.Duration)
	ObserveRun(suite string, succeeded bool)
}

// Dependencies wires the collaborators of a Gate.
type Dependencies struct {
	Synchronizer RepositorySynchronizer
	Applicator   OverrideApplicator
	Tasks        TaskRunner
	Detector     packagemanager.AgentDetector
	Observer     StageObserver
	Logger       *zap.Logger
	HumanLogging bool
	Clock        func() time.Time
}

// RunOptions configures one gate run.
type RunOptions struct {
	Suite            string
	Workspace        string
	Environment      map[string]string
	Agent            string
	AgentVersion     string
	Overrides        overrides.Set
	PinnedDependency string
	Release          string
	BeforeInstall    tasks.Specification
	BeforeBuild      tasks.Specification
	Build            tasks.Specification
	BeforeTest       tasks.Specification
	Test             tasks.Specification
}

// EffectiveOverrides returns the configured overrides with the release version pinned.
func (options RunOptions) EffectiveOverrides() overrides.Set {
	set := options.Overrides.Merge(nil)
	release := strings.TrimSpace(options.Release)
	if len(release) == 0 {
		return set
	}
	pinnedDependency := strings.TrimSpace(options.PinnedDependency)
	if len(pinnedDependency) == 0 {
		pinnedDependency = DefaultPinnedDependency
	}
	return set.With(pinnedDependency, overrides.Version(release))
}

// Gate runs the ordered lifecycle of one suite against a fresh dependency version.
type Gate struct {
	synchronizer RepositorySynchronizer
	applicator   OverrideApplicator
	tasks        TaskRunner
	detector     packagemanager.AgentDetector
	observer     StageObserver
	logger       *zap.Logger
	humanLogging bool
	clock        func() time.Time
}

// NewGate validates dependencies and constructs a Gate.
func NewGate(dependencies Dependencies) (*Gate, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Synchronizer == nil {
		return nil, ErrSynchronizerNotConfigured
	}
	if dependencies.Applicator == nil {
		return nil, ErrApplicatorNotConfigured
	}
	if dependencies.Tasks == nil {
		return nil, ErrTaskRunnerNotConfigured
	}
	detector := dependencies.Detector
	if detector == nil {
		detector = packagemanager.NewDetector(dependencies.Logger)
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Gate{
		synchronizer: dependencies.Synchronizer,
		applicator:   dependencies.Applicator,
		tasks:        dependencies.Tasks,
		detector:     detector,
		observer:     dependencies.Observer,
		logger:       dependencies.Logger,
		humanLogging: dependencies.HumanLogging,
		clock:        clock,
	}, nil
}

// runState carries values produced by earlier stages to later ones.
type runState struct {
	runContext execshell.RunContext
	directory  string
	agent      packagemanager.Identity
	document   *manifest.Manifest
	scripts    map[string]string
}

type stage struct {
	name    StageName
	skipped func() bool
	run     func(executionContext context.Context, state *runState) error
}

// Run synchronizes ref into the workspace and executes every stage in order.
// The first failing stage stops the run; later stages are reported as not-run.
func (gate *Gate) Run(executionContext context.Context, ref reposync.RepoRef, options RunOptions) (Report, error) {
	report := Report{Suite: options.Suite}
	workspace := strings.TrimSpace(options.Workspace)
	if len(workspace) == 0 {
		return report, gateerrors.WrapMessage(gateerrors.OperationConfig, workspaceSubjectConstant, gateerrors.ErrWorkspaceUnavailable, workspaceRequiredMessageConstant)
	}

	startTime := gate.clock()
	state := &runState{runContext: execshell.NewRunContext(workspace, options.Environment)}
	var runError error
	for _, current := range gate.stages(ref, options) {
		if runError != nil {
			gate.record(&report, StageResult{Stage: current.name, Status: StatusNotRun})
			continue
		}
		if current.skipped != nil && current.skipped() {
			gate.record(&report, StageResult{Stage: current.name, Status: StatusSkipped})
			continue
		}

		stageStart := gate.clock()
		stageError := current.run(executionContext, state)
		result := StageResult{Stage: current.name, Status: StatusSucceeded, Duration: gate.clock().Sub(stageStart)}
		if stageError != nil {
			result.Status = StatusFailed
			result.Err = stageError
			runError = stageError
		}
		report.Directory = state.directory
		report.Agent = state.agent
		gate.record(&report, result)
	}

	report.Duration = gate.clock().Sub(startTime)
	if gate.observer != nil {
		gate.observer.ObserveRun(options.Suite, runError == nil)
	}
	gate.logRunFinished(report)
	return report, runError
}

func (gate *Gate) stages(ref reposync.RepoRef, options RunOptions) []stage {
	testConfigured := options.Test.Configured()
	return []stage{
		{
			name: StageSync,
			run: func(executionContext context.Context, state *runState) error {
				result, syncError := gate.synchronizer.Synchronize(executionContext, state.runContext, ref)
				if syncError != nil {
					return syncError
				}
				state.runContext = result.RunContext
				state.directory = result.Directory
				return nil
			},
		},
		{
			name: StageSelectAgent,
			run: func(executionContext context.Context, state *runState) error {
				agent, selectError := packagemanager.Select(executionContext, options.Agent, gate.detector, state.directory)
				if selectError != nil {
					return selectError
				}
				state.agent = agent
				return nil
			},
		},
		{
			name: StageLoadManifest,
			run: func(_ context.Context, state *runState) error {
				document, loadError := manifest.Load(state.directory)
				if loadError != nil {
					return gateerrors.Wrap(gateerrors.OperationConfig, state.directory, gateerrors.ErrManifestInvalid, loadError)
				}
				state.document = document
				state.scripts = document.Scripts()
				return nil
			},
		},
		gate.taskStage(StageBeforeInstall, options.BeforeInstall, nil),
		{
			name: StageInstall,
			run: func(executionContext context.Context, state *runState) error {
				_, applyError := gate.applicator.Apply(executionContext, state.runContext, state.document, options.EffectiveOverrides(), options.AgentVersion)
				return applyError
			},
		},
		gate.taskStage(StageBeforeBuild, options.BeforeBuild, nil),
		gate.taskStage(StageBuild, options.Build, nil),
		gate.taskStage(StageBeforeTest, options.BeforeTest, func() bool { return !testConfigured }),
		gate.taskStage(StageTest, options.Test, func() bool { return !testConfigured }),
	}
}

// taskStage runs specification with the scripts read before install.
// A stage without runnable tasks is skipped.
func (gate *Gate) taskStage(name StageName, specification tasks.Specification, skipped func() bool) stage {
	return stage{
		name: name,
		skipped: func() bool {
			if skipped != nil && skipped() {
				return true
			}
			return !specification.Configured()
		},
		run: func(executionContext context.Context, state *runState) error {
			return gate.tasks.Run(executionContext, state.runContext, state.agent, specification, state.scripts)
		},
	}
}

func (gate *Gate) record(report *Report, result StageResult) {
	report.Stages = append(report.Stages, result)
	if gate.observer != nil {
		gate.observer.ObserveStage(report.Suite, string(result.Stage), string(result.Status), result.Duration)
	}
	switch result.Status {
	case StatusFailed:
		gate.logStageFailed(report.Suite, result)
	case StatusSucceeded, StatusSkipped:
		gate.logStageFinished(report.Suite, result)
	}
}

func (gate *Gate) logStageFinished(suite string, result StageResult) {
	if gate.humanLogging {
		gate.logger.Info(fmt.Sprintf(stageFinishedTemplateConstant, suite, result.Stage, result.Status, result.Duration.Round(time.Millisecond)))
		return
	}
	gate.logger.Info(stageFinishedMessageConstant,
		zap.String(suiteFieldNameConstant, suite),
		zap.String(stageFieldNameConstant, string(result.Stage)),
		zap.String(statusFieldNameConstant, string(result.Status)),
		zap.Duration(durationFieldNameConstant, result.Duration),
	)
}

func (gate *Gate) logStageFailed(suite string, result StageResult) {
	if gate.humanLogging {
		gate.logger.Error(fmt.Sprintf(stageFailedTemplateConstant, suite, result.Stage, result.Duration.Round(time.Millisecond), result.Err))
		return
	}
	gate.logger.Error(stageFailedMessageConstant,
		zap.String(suiteFieldNameConstant, suite),
		zap.String(stageFieldNameConstant, string(result.Stage)),
		zap.Duration(durationFieldNameConstant, result.Duration),
		zap.Error(result.Err),
	)
}

func (gate *Gate) logRunFinished(report Report) {
	outcome := StatusSucceeded
	if !report.Succeeded() {
		outcome = StatusFailed
	}
	if gate.humanLogging {
		gate.logger.Info(fmt.Sprintf(runFinishedTemplateConstant, report.Suite, report.Duration.Round(time.Millisecond), outcome, report.Directory))
		return
	}
	gate.logger.Info(runFinishedMessageConstant,
		zap.String(suiteFieldNameConstant, report.Suite),
		zap.String(statusFieldNameConstant, string(outcome)),
		zap.String(directoryFieldNameConstant, report.Directory),
		zap.String(agentFieldNameConstant, report.Agent.String()),
		zap.Duration(durationFieldNameConstant, report.Duration),
	)
}
