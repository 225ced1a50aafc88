// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	Workspace    string
	Agent        string
	AgentVersion string
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	Workspace    ExecutionFlagDefinition
	Agent        ExecutionFlagDefinition
	AgentVersion ExecutionFlagDefinition
}

// DefaultExecutionFlagDefinitions enables every shared execution flag with its standard name and usage.
func DefaultExecutionFlagDefinitions() ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		Workspace:    ExecutionFlagDefinition{Name: WorkspaceFlagName, Usage: WorkspaceFlagUsage, Shorthand: "w", Enabled: true},
		Agent:        ExecutionFlagDefinition{Name: AgentFlagName, Usage: AgentFlagUsage, Enabled: true},
		AgentVersion: ExecutionFlagDefinition{Name: AgentVersionFlagName, Usage: AgentVersionFlagUsage, Enabled: true},
	}
}

// BindExecutionFlags attaches standardized execution flags to the provided command using persistent scope.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) {
	if command == nil {
		return
	}

	persistentFlagSet := command.PersistentFlags()

	bindStringFlag(persistentFlagSet, definitions.Workspace, defaults.Workspace)
	bindStringFlag(persistentFlagSet, definitions.Agent, defaults.Agent)
	bindStringFlag(persistentFlagSet, definitions.AgentVersion, defaults.AgentVersion)
}

func bindStringFlag(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition, defaultValue string) {
	if flagSet == nil {
		return
	}
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 {
		return
	}
	if flagSet.Lookup(definition.Name) != nil {
		return
	}

	flagSet.StringP(definition.Name, definition.Shorthand, defaultValue, definition.Usage)
}
