package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/tyemirov/ecogate/internal/overrides"
	"github.com/tyemirov/ecogate/internal/reposync"
	"github.com/tyemirov/ecogate/internal/tasks"
	"github.com/tyemirov/ecogate/internal/utils"
)

const (
	duplicateSuiteConfigurationTemplateConstant = "duplicate configuration for suite %q"
	missingSuiteNameTemplateConstant            = "suite at index %d has no name"
	unknownSuiteTemplateConstant                = "%q does not exist in the configured suites (%s)"
	suiteFieldErrorTemplateConstant             = "suite %q %s: %w"
	beforeInstallFieldConstant                  = "before_install"
	beforeBuildFieldConstant                    = "before_build"
	buildFieldConstant                          = "build"
	beforeTestFieldConstant                     = "before_test"
	testFieldConstant                           = "test"
	overridesFieldConstant                      = "overrides"
	scriptTaskKeyConstant                       = "script"
	commandTaskKeyConstant                      = "command"
)

var keyedTaskPropertyCount uint64 = 1

var taskFieldNames = []string{beforeInstallFieldConstant, beforeBuildFieldConstant, buildFieldConstant, beforeTestFieldConstant, testFieldConstant}

// DuplicateSuiteConfigurationError indicates that the configuration defines the same suite multiple times.
type DuplicateSuiteConfigurationError struct {
	SuiteName string
}

// Error implements the error interface.
func (errorDetails DuplicateSuiteConfigurationError) Error() string {
	return fmt.Sprintf(duplicateSuiteConfigurationTemplateConstant, errorDetails.SuiteName)
}

// UnknownSuiteError indicates that a requested suite has no configuration.
type UnknownSuiteError struct {
	SuiteName string
	Available []string
}

// Error implements the error interface.
func (errorDetails UnknownSuiteError) Error() string {
	return fmt.Sprintf(unknownSuiteTemplateConstant, errorDetails.SuiteName, strings.Join(errorDetails.Available, ", "))
}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration  `mapstructure:"common" json:"common"`
	Suites []ApplicationSuiteConfiguration `mapstructure:"suites" json:"suites"`
}

// ApplicationCommonConfiguration stores logging and run defaults shared across suites.
type ApplicationCommonConfiguration struct {
	LogLevel         string `mapstructure:"log_level" json:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	LogFormat        string `mapstructure:"log_format" json:"log_format,omitempty" jsonschema:"enum=structured,enum=console"`
	Workspace        string `mapstructure:"workspace" json:"workspace,omitempty" jsonschema:"description=Root directory holding one checkout per suite"`
	MetricsFile      string `mapstructure:"metrics_file" json:"metrics_file,omitempty" jsonschema:"description=Prometheus textfile written after every run"`
	PinnedDependency string `mapstructure:"pinned_dependency" json:"pinned_dependency,omitempty" jsonschema:"description=Dependency forced to the --release version"`
}

// ApplicationSuiteConfiguration describes one project gated by ecogate.
type ApplicationSuiteConfiguration struct {
	reposync.RepoRef `mapstructure:",squash" yaml:",inline"`

	Name          string         `mapstructure:"name" json:"name" jsonschema:"required"`
	Agent         string         `mapstructure:"agent" json:"agent,omitempty" jsonschema:"enum=npm,enum=yarn,enum=pnpm"`
	AgentVersion  string         `mapstructure:"agent_version" json:"agent_version,omitempty"`
	Overrides     map[string]any `mapstructure:"overrides" json:"overrides,omitempty"`
	BeforeInstall any            `mapstructure:"before_install" json:"before_install,omitempty"`
	BeforeBuild   any            `mapstructure:"before_build" json:"before_build,omitempty"`
	Build         any            `mapstructure:"build" json:"build,omitempty"`
	BeforeTest    any            `mapstructure:"before_test" json:"before_test,omitempty"`
	Test          any            `mapstructure:"test" json:"test,omitempty"`
}

// JSONSchemaExtend describes task fields as a command string, a script or command entry, or a list of them.
func (ApplicationSuiteConfiguration) JSONSchemaExtend(schema *jsonschema.Schema) {
	if schema == nil || schema.Properties == nil {
		return
	}
	for _, fieldName := range taskFieldNames {
		schema.Properties.Set(fieldName, &jsonschema.Schema{
			OneOf: []*jsonschema.Schema{
				{Type: "string"},
				keyedTaskSchema(),
				{Type: "array", Items: &jsonschema.Schema{OneOf: []*jsonschema.Schema{{Type: "string"}, keyedTaskSchema()}}},
			},
		})
	}
	schema.Properties.Set(overridesFieldConstant, &jsonschema.Schema{
		Type: "object",
		AdditionalProperties: &jsonschema.Schema{
			OneOf: []*jsonschema.Schema{{Type: "string"}, {Type: "boolean"}},
		},
	})
}

func keyedTaskSchema() *jsonschema.Schema {
	properties := jsonschema.NewProperties()
	properties.Set(scriptTaskKeyConstant, &jsonschema.Schema{Type: "string"})
	properties.Set(commandTaskKeyConstant, &jsonschema.Schema{Type: "string"})
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           properties,
		MinProperties:        &keyedTaskPropertyCount,
		MaxProperties:        &keyedTaskPropertyCount,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// Suite is a configured suite with its tasks and overrides decoded.
type Suite struct {
	Name          string
	Ref           reposync.RepoRef
	Agent         string
	AgentVersion  string
	Overrides     overrides.Set
	BeforeInstall tasks.Specification
	BeforeBuild   tasks.Specification
	Build         tasks.Specification
	BeforeTest    tasks.Specification
	Test          tasks.Specification
}

// Resolve decodes the task and override fields of the suite.
func (configuration ApplicationSuiteConfiguration) Resolve() (Suite, error) {
	suite := Suite{
		Name:         strings.TrimSpace(configuration.Name),
		Ref:          configuration.RepoRef,
		Agent:        strings.TrimSpace(configuration.Agent),
		AgentVersion: strings.TrimSpace(configuration.AgentVersion),
	}

	overrideSet, overrideError := overrides.FromMap(configuration.Overrides)
	if overrideError != nil {
		return Suite{}, fmt.Errorf(suiteFieldErrorTemplateConstant, suite.Name, overridesFieldConstant, overrideError)
	}
	suite.Overrides = overrideSet

	targets := []struct {
		field  string
		raw    any
		target *tasks.Specification
	}{
		{field: beforeInstallFieldConstant, raw: configuration.BeforeInstall, target: &suite.BeforeInstall},
		{field: beforeBuildFieldConstant, raw: configuration.BeforeBuild, target: &suite.BeforeBuild},
		{field: buildFieldConstant, raw: configuration.Build, target: &suite.Build},
		{field: beforeTestFieldConstant, raw: configuration.BeforeTest, target: &suite.BeforeTest},
		{field: testFieldConstant, raw: configuration.Test, target: &suite.Test},
	}
	for _, target := range targets {
		specification, parseError := tasks.ParseSpecification(target.raw)
		if parseError != nil {
			return Suite{}, fmt.Errorf(suiteFieldErrorTemplateConstant, suite.Name, target.field, parseError)
		}
		*target.target = specification
	}

	return suite, nil
}

// SuiteConfigurations indexes suite configurations by normalized name, keeping declaration order.
type SuiteConfigurations struct {
	names   []string
	entries map[string]ApplicationSuiteConfiguration
}

func newSuiteConfigurations(definitions []ApplicationSuiteConfiguration) (SuiteConfigurations, error) {
	configurations := SuiteConfigurations{entries: make(map[string]ApplicationSuiteConfiguration, len(definitions))}
	for index, definition := range definitions {
		normalizedName := normalizeSuiteName(definition.Name)
		if len(normalizedName) == 0 {
			return SuiteConfigurations{}, fmt.Errorf(missingSuiteNameTemplateConstant, index)
		}
		if _, exists := configurations.entries[normalizedName]; exists {
			return SuiteConfigurations{}, DuplicateSuiteConfigurationError{SuiteName: normalizedName}
		}
		definition.Name = normalizedName
		configurations.names = append(configurations.names, normalizedName)
		configurations.entries[normalizedName] = definition
	}
	return configurations, nil
}

// MergeDefaults adds default suites that the loaded configuration does not redefine.
func (configurations SuiteConfigurations) MergeDefaults(defaults SuiteConfigurations) SuiteConfigurations {
	merged := SuiteConfigurations{
		names:   append([]string{}, configurations.names...),
		entries: make(map[string]ApplicationSuiteConfiguration, len(configurations.entries)+len(defaults.entries)),
	}
	for name, entry := range configurations.entries {
		merged.entries[name] = entry
	}
	for _, name := range defaults.names {
		if _, exists := merged.entries[name]; exists {
			continue
		}
		merged.names = append(merged.names, name)
		merged.entries[name] = defaults.entries[name]
	}
	return merged
}

// Names lists the configured suites in declaration order.
func (configurations SuiteConfigurations) Names() []string {
	return append([]string{}, configurations.names...)
}

// Lookup resolves every requested suite, failing on the first unknown name before anything runs.
// No requested names selects every configured suite.
func (configurations SuiteConfigurations) Lookup(requestedNames []string) ([]Suite, error) {
	if len(requestedNames) == 0 {
		requestedNames = configurations.names
	}

	selected := make([]ApplicationSuiteConfiguration, 0, len(requestedNames))
	for _, requestedName := range requestedNames {
		entry, exists := configurations.entries[normalizeSuiteName(requestedName)]
		if !exists {
			available := configurations.Names()
			sort.Strings(available)
			return nil, UnknownSuiteError{SuiteName: requestedName, Available: available}
		}
		selected = append(selected, entry)
	}

	suites := make([]Suite, 0, len(selected))
	for _, entry := range selected {
		suite, resolveError := entry.Resolve()
		if resolveError != nil {
			return nil, resolveError
		}
		suites = append(suites, suite)
	}
	return suites, nil
}

func normalizeSuiteName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func loadEmbeddedSuiteConfigurations() SuiteConfigurations {
	configurationData, configurationType := EmbeddedDefaultConfiguration()
	if len(configurationData) == 0 {
		return SuiteConfigurations{}
	}

	loader := utils.NewConfigurationLoader(configurationNameConstant, configurationTypeConstant, "", nil)
	loader.SetEmbeddedConfiguration(configurationData, configurationType)

	var configuration ApplicationConfiguration
	if _, err := loader.LoadConfiguration("", nil, &configuration); err != nil {
		return SuiteConfigurations{}
	}

	embeddedConfigurations, configurationError := newSuiteConfigurations(configuration.Suites)
	if configurationError != nil {
		return SuiteConfigurations{}
	}
	return embeddedConfigurations
}
