package environment

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Variables exported to every command of a run.
const (
	ContinuousIntegrationVariable = "CI"
	NodeOptionsVariable           = "NODE_OPTIONS"
	EcosystemVariable             = "ECOSYSTEM_CI"
)

const (
	enabledValueConstant         = "true"
	processErrorTemplateConstant = "load environment settings: %w"
)

// Settings captures the process environment consulted by a run.
type Settings struct {
	// GitHubActions enables collapsible log groups around command output.
	GitHubActions bool `env:"GITHUB_ACTIONS,default=false"`
	// NodeOptions keeps Node below the memory ceiling of hosted CI runners.
	NodeOptions string `env:"ECOGATE_NODE_OPTIONS,default=--max-old-space-size=6144"`
}

// Load reads Settings through lookuper, falling back to the process environment when lookuper is nil.
func Load(executionContext context.Context, lookuper envconfig.Lookuper) (Settings, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	var settings Settings
	if processError := envconfig.ProcessWith(executionContext, &envconfig.Config{
		Target:   &settings,
		Lookuper: lookuper,
	}); processError != nil {
		return Settings{}, fmt.Errorf(processErrorTemplateConstant, processError)
	}
	return settings, nil
}

// Variables returns the overrides layered on top of the inherited process environment.
func (settings Settings) Variables() map[string]string {
	return map[string]string{
		ContinuousIntegrationVariable: enabledValueConstant,
		NodeOptionsVariable:           settings.NodeOptions,
		EcosystemVariable:             enabledValueConstant,
	}
}
