package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tyemirov/ecogate/internal/environment"
	"github.com/tyemirov/ecogate/internal/execshell"
	"github.com/tyemirov/ecogate/internal/gate"
	"github.com/tyemirov/ecogate/internal/metrics"
	"github.com/tyemirov/ecogate/internal/overrides"
	"github.com/tyemirov/ecogate/internal/packagemanager"
	"github.com/tyemirov/ecogate/internal/tasks"
	"github.com/tyemirov/ecogate/internal/utils"
	flagutils "github.com/tyemirov/ecogate/internal/utils/flags"
	pathutils "github.com/tyemirov/ecogate/internal/utils/path"
	"github.com/tyemirov/ecogate/pkg/taskrunner"
)

const (
	runCommandUseConstant                   = "run [suites...]"
	runCommandShortDescriptionConstant      = "Run the gate for the selected suites"
	runCommandLongDescriptionConstant       = "run synchronizes every selected suite into the workspace, pins the requested release and overrides, installs dependencies and runs the configured tasks. Suites run one after another and the first failure stops the run. No suite names selects every configured suite."
	planCommandUseConstant                  = "plan [suites...]"
	planCommandShortDescriptionConstant     = "Print the resolved suites as YAML"
	planCommandLongDescriptionConstant      = "plan resolves the selected suites with the current configuration and flags and prints what run would execute, without touching the workspace."
	schemaCommandUseConstant                = "schema"
	schemaCommandShortDescriptionConstant   = "Print the configuration JSON schema"
	schemaCommandLongDescriptionConstant    = "schema prints the JSON schema of the ecogate configuration file."
	releaseFlagNameConstant                 = "release"
	releaseFlagUsageConstant                = "Release version forced into every suite for the pinned dependency"
	overrideFlagNameConstant                = "override"
	overrideFlagUsageConstant               = "Dependency override as name=version (repeatable; true/false act as markers)"
	metricsFileFlagNameConstant             = "metrics-file"
	metricsFileFlagUsageConstant            = "Write Prometheus metrics for the run to this textfile"
	summaryFlagNameConstant                 = "summary"
	summaryFlagUsageConstant                = "Print a Markdown table of every stage after the run"
	schemaIndentConstant                    = "  "
	suiteStartedMessageConstant             = "suite started"
	suiteStartedTemplateConstant            = "Gating %s in %s"
	suiteFieldConstant                      = "suite"
	workspaceFieldConstant                  = "workspace"
	metricsWriteFailedMessageConstant       = "metrics export failed"
	metricsFileFieldConstant                = "metrics_file"
	workspaceResolveErrorTemplateConstant   = "unable to resolve workspace %q: %w"
	metricsFileResolveErrorTemplateConstant = "unable to resolve metrics file %q: %w"
	baseDirectoryErrorTemplateConstant      = "unable to determine working directory: %w"
	planEncodeErrorTemplateConstant         = "unable to render plan: %w"
	schemaEncodeErrorTemplateConstant       = "unable to render schema: %w"
)

// gateHooks lets tests replace the process-facing collaborators of a run.
type gateHooks struct {
	commandRunner       execshell.CommandRunner
	factory             taskrunner.Factory
	environmentLookuper envconfig.Lookuper
	workingDirectory    func() (string, error)
}

type runCommandOptions struct {
	release     string
	overrides   []string
	metricsFile string
	summary     bool
}

// suitePlan is the YAML shape printed by the plan command.
type suitePlan struct {
	Name          string        `yaml:"name"`
	Repository    string        `yaml:"repository"`
	Directory     string        `yaml:"directory"`
	Branch        string        `yaml:"branch,omitempty"`
	Tag           string        `yaml:"tag,omitempty"`
	Commit        string        `yaml:"commit,omitempty"`
	Shallow       bool          `yaml:"shallow"`
	Agent         string        `yaml:"agent,omitempty"`
	AgentVersion  string        `yaml:"agent_version,omitempty"`
	Overrides     overrides.Set `yaml:"overrides,omitempty"`
	BeforeInstall []any         `yaml:"before_install,omitempty"`
	BeforeBuild   []any         `yaml:"before_build,omitempty"`
	Build         []any         `yaml:"build,omitempty"`
	BeforeTest    []any         `yaml:"before_test,omitempty"`
	Test          []any         `yaml:"test,omitempty"`
}

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	cobraCommand.AddCommand(application.newRunCommand())
	cobraCommand.AddCommand(application.newPlanCommand())
	cobraCommand.AddCommand(application.newSchemaCommand())
}

func (application *Application) newRunCommand() *cobra.Command {
	options := &runCommandOptions{}
	command := &cobra.Command{
		Use:   runCommandUseConstant,
		Short: runCommandShortDescriptionConstant,
		Long:  runCommandLongDescriptionConstant,
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runSuites(command, arguments, *options)
		},
	}
	bindSelectionFlags(command, options)
	command.Flags().StringVar(&options.metricsFile, metricsFileFlagNameConstant, "", metricsFileFlagUsageConstant)
	command.Flags().BoolVar(&options.summary, summaryFlagNameConstant, false, summaryFlagUsageConstant)
	return command
}

func (application *Application) newPlanCommand() *cobra.Command {
	options := &runCommandOptions{}
	command := &cobra.Command{
		Use:   planCommandUseConstant,
		Short: planCommandShortDescriptionConstant,
		Long:  planCommandLongDescriptionConstant,
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.printPlan(command, arguments, *options)
		},
	}
	bindSelectionFlags(command, options)
	return command
}

func (application *Application) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   schemaCommandUseConstant,
		Short: schemaCommandShortDescriptionConstant,
		Long:  schemaCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return printConfigurationSchema(command)
		},
	}
}

func bindSelectionFlags(command *cobra.Command, options *runCommandOptions) {
	command.Flags().StringVar(&options.release, releaseFlagNameConstant, "", releaseFlagUsageConstant)
	command.Flags().StringArrayVar(&options.overrides, overrideFlagNameConstant, nil, overrideFlagUsageConstant)
}

type preparedSuite struct {
	suite   Suite
	options gate.RunOptions
}

// prepareSuites validates every input of a run before any side effect takes place.
func (application *Application) prepareSuites(command *cobra.Command, suiteNames []string, options runCommandOptions, environmentVariables map[string]string) ([]preparedSuite, error) {
	suites, lookupError := application.suiteConfigurations.Lookup(suiteNames)
	if lookupError != nil {
		return nil, lookupError
	}

	flagOverrides, overrideError := overrides.ParseAssignments(options.overrides)
	if overrideError != nil {
		return nil, overrideError
	}

	executionFlags, _ := flagutils.ResolveExecutionFlags(command)
	workspace, workspaceError := application.resolveWorkspace(executionFlags)
	if workspaceError != nil {
		return nil, workspaceError
	}

	prepared := make([]preparedSuite, 0, len(suites))
	for _, suite := range suites {
		agent := suite.Agent
		if executionFlags.AgentSet && len(executionFlags.Agent) > 0 {
			agent = executionFlags.Agent
		}
		if len(agent) > 0 {
			if _, selectError := packagemanager.Select(command.Context(), agent, nil, ""); selectError != nil {
				return nil, selectError
			}
		}
		agentVersion := suite.AgentVersion
		if executionFlags.AgentVersionSet && len(executionFlags.AgentVersion) > 0 {
			agentVersion = executionFlags.AgentVersion
		}

		prepared = append(prepared, preparedSuite{
			suite: suite,
			options: gate.RunOptions{
				Suite:            suite.Name,
				Workspace:        filepath.Join(workspace, suite.Name),
				Environment:      environmentVariables,
				Agent:            agent,
				AgentVersion:     agentVersion,
				Overrides:        suite.Overrides.Merge(flagOverrides),
				PinnedDependency: application.configuration.Common.PinnedDependency,
				Release:          strings.TrimSpace(options.release),
				BeforeInstall:    suite.BeforeInstall,
				BeforeBuild:      suite.BeforeBuild,
				Build:            suite.Build,
				BeforeTest:       suite.BeforeTest,
				Test:             suite.Test,
			},
		})
	}
	return prepared, nil
}

func (application *Application) resolveWorkspace(executionFlags utils.ExecutionFlags) (string, error) {
	workspace := application.configuration.Common.Workspace
	if executionFlags.WorkspaceSet && len(executionFlags.Workspace) > 0 {
		workspace = executionFlags.Workspace
	}
	if len(strings.TrimSpace(workspace)) == 0 {
		workspace = defaultWorkspaceConstant
	}
	resolved, resolveError := pathutils.NewResolver(nil).Resolve(workspace)
	if resolveError != nil {
		return "", fmt.Errorf(workspaceResolveErrorTemplateConstant, workspace, resolveError)
	}
	return resolved, nil
}

func (application *Application) resolveMetricsFile(command *cobra.Command, options runCommandOptions) (string, error) {
	metricsFile := application.configuration.Common.MetricsFile
	if command.Flags().Changed(metricsFileFlagNameConstant) {
		metricsFile = options.metricsFile
	}
	if len(strings.TrimSpace(metricsFile)) == 0 {
		return "", nil
	}
	resolved, resolveError := pathutils.NewResolver(nil).Resolve(metricsFile)
	if resolveError != nil {
		return "", fmt.Errorf(metricsFileResolveErrorTemplateConstant, metricsFile, resolveError)
	}
	return resolved, nil
}

func (application *Application) runSuites(command *cobra.Command, suiteNames []string, options runCommandOptions) error {
	executionContext, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, settingsError := environment.Load(executionContext, application.gateHooks.environmentLookuper)
	if settingsError != nil {
		return settingsError
	}

	prepared, prepareError := application.prepareSuites(command, suiteNames, options, settings.Variables())
	if prepareError != nil {
		return prepareError
	}

	metricsFile, metricsFileError := application.resolveMetricsFile(command, options)
	if metricsFileError != nil {
		return metricsFileError
	}

	workingDirectory := application.gateHooks.workingDirectory
	if workingDirectory == nil {
		workingDirectory = os.Getwd
	}
	baseDirectory, baseDirectoryError := workingDirectory()
	if baseDirectoryError != nil {
		return fmt.Errorf(baseDirectoryErrorTemplateConstant, baseDirectoryError)
	}

	recorder := metrics.NewRecorder()
	dependencies, dependenciesError := taskrunner.BuildDependencies(
		taskrunner.DependenciesConfig{
			LoggerProvider:               func() *zap.Logger { return application.logger },
			HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
			CommandRunner:                application.gateHooks.commandRunner,
			Observer:                     recorder,
			BaseDirectory:                baseDirectory,
		},
		taskrunner.DependenciesOptions{
			Command:       command,
			Output:        utils.NewFlushingWriter(command.OutOrStdout()),
			Errors:        utils.NewFlushingWriter(command.ErrOrStderr()),
			GroupedOutput: settings.GitHubActions,
		},
	)
	if dependenciesError != nil {
		return dependenciesError
	}

	executor, resolveError := taskrunner.Resolve(application.gateHooks.factory, dependencies)
	if resolveError != nil {
		return resolveError
	}

	reports := make([]gate.Report, 0, len(prepared))
	var runError error
	for _, current := range prepared {
		suiteContext := application.commandContextAccessor.WithSuiteContext(executionContext, utils.SuiteContext{
			Name:      current.suite.Name,
			Directory: current.options.Workspace,
		})
		application.logSuiteStarted(suiteContext)

		report, suiteError := executor.Run(suiteContext, current.suite.Ref, current.options)
		reports = append(reports, report)
		if suiteError != nil {
			runError = suiteError
			break
		}
	}

	if len(metricsFile) > 0 {
		if writeError := recorder.WriteTextfile(metricsFile); writeError != nil {
			application.logger.Warn(metricsWriteFailedMessageConstant, zap.String(metricsFileFieldConstant, metricsFile), zap.Error(writeError))
			runError = errors.Join(runError, writeError)
		}
	}

	if options.summary {
		if summaryError := gate.RenderSummary(dependencies.Output, reports); summaryError != nil {
			runError = errors.Join(runError, summaryError)
		}
	}

	return runError
}

func (application *Application) logSuiteStarted(executionContext context.Context) {
	suite, available := application.commandContextAccessor.SuiteContext(executionContext)
	if !available {
		return
	}
	if application.humanReadableLoggingEnabled() {
		application.logger.Info(fmt.Sprintf(suiteStartedTemplateConstant, suite.Name, suite.Directory))
		return
	}
	application.logger.Info(
		suiteStartedMessageConstant,
		zap.String(suiteFieldConstant, suite.Name),
		zap.String(workspaceFieldConstant, suite.Directory),
	)
}

func (application *Application) printPlan(command *cobra.Command, suiteNames []string, options runCommandOptions) error {
	prepared, prepareError := application.prepareSuites(command, suiteNames, options, nil)
	if prepareError != nil {
		return prepareError
	}

	plans := make([]suitePlan, 0, len(prepared))
	for _, current := range prepared {
		ref := current.suite.Ref
		plans = append(plans, suitePlan{
			Name:          current.suite.Name,
			Repository:    ref.RepositoryURL(),
			Directory:     filepath.Join(current.options.Workspace, ref.DirectoryName()),
			Branch:        ref.BranchName(),
			Tag:           ref.TagName(),
			Commit:        ref.CommitID(),
			Shallow:       ref.IsShallow(),
			Agent:         current.options.Agent,
			AgentVersion:  current.options.AgentVersion,
			Overrides:     current.options.EffectiveOverrides(),
			BeforeInstall: planTasks(current.options.BeforeInstall),
			BeforeBuild:   planTasks(current.options.BeforeBuild),
			Build:         planTasks(current.options.Build),
			BeforeTest:    planTasks(current.options.BeforeTest),
			Test:          planTasks(current.options.Test),
		})
	}

	encoder := yaml.NewEncoder(command.OutOrStdout())
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(plans); encodeError != nil {
		return fmt.Errorf(planEncodeErrorTemplateConstant, encodeError)
	}
	return encoder.Close()
}

func planTasks(specification tasks.Specification) []any {
	rendered := make([]any, 0, len(specification))
	for _, task := range specification {
		value, _ := task.MarshalYAML()
		if value == nil {
			continue
		}
		rendered = append(rendered, value)
	}
	if len(rendered) == 0 {
		return nil
	}
	return rendered
}

func printConfigurationSchema(command *cobra.Command) error {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(&ApplicationConfiguration{})
	encoded, encodeError := json.MarshalIndent(schema, "", schemaIndentConstant)
	if encodeError != nil {
		return fmt.Errorf(schemaEncodeErrorTemplateConstant, encodeError)
	}
	_, writeError := fmt.Fprintln(command.OutOrStdout(), string(encoded))
	return writeError
}
