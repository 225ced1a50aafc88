package packagemanager

import (
	"fmt"
	"strings"

	gateerrors "github.com/tyemirov/ecogate/internal/errors"
	"github.com/tyemirov/ecogate/internal/execshell"
	"github.com/tyemirov/ecogate/internal/manifest"
)

const (
	installSubcommandConstant          = "install"
	pnpmPreferFrozenLockfileConstant   = "--prefer-frozen-lockfile"
	pnpmPreferOfflineConstant          = "--prefer-offline"
	pnpmStrictPeerDependenciesConstant = "--strict-peer-dependencies"
	pnpmStrictPeerDisabledConstant     = "false"
	pnpmSectionConstant                = "pnpm"
	unsupportedManagerTemplateConstant = "unsupported package manager detected: %s"
)

// Manager rewrites a manifest and installs dependencies for one agent.
type Manager interface {
	Name() string
	ApplyOverrides(document *manifest.Manifest, overrides map[string]string) error
	InstallInvocation() Invocation
}

// ManagerFor returns the Manager variant for the identity's agent name.
func ManagerFor(identity Identity) (Manager, error) {
	switch identity.Name() {
	case AgentPnpm:
		return pnpmManager{}, nil
	case AgentYarn:
		return yarnManager{}, nil
	case AgentNpm:
		return npmManager{}, nil
	default:
		return nil, gateerrors.WrapMessage(gateerrors.OperationConfig, identity.String(), gateerrors.ErrAgentUnsupported, fmt.Sprintf(unsupportedManagerTemplateConstant, identity.Name()))
	}
}

// pnpm only honours overrides of packages that are also declared, so they are mirrored into devDependencies.
type pnpmManager struct{}

func (pnpmManager) Name() string {
	return AgentPnpm
}

func (pnpmManager) ApplyOverrides(document *manifest.Manifest, overrides map[string]string) error {
	if mergeError := document.Merge(overrides, manifest.SectionDevDependencies); mergeError != nil {
		return mergeError
	}
	return document.Merge(overrides, pnpmSectionConstant, manifest.SectionOverrides)
}

func (pnpmManager) InstallInvocation() Invocation {
	return Invocation{
		Command: execshell.CommandPnpm,
		Arguments: []string{
			installSubcommandConstant,
			pnpmPreferFrozenLockfileConstant,
			pnpmPreferOfflineConstant,
			pnpmStrictPeerDependenciesConstant,
			pnpmStrictPeerDisabledConstant,
		},
	}
}

type yarnManager struct{}

func (yarnManager) Name() string {
	return AgentYarn
}

func (yarnManager) ApplyOverrides(document *manifest.Manifest, overrides map[string]string) error {
	return document.Merge(overrides, manifest.SectionResolutions)
}

func (yarnManager) InstallInvocation() Invocation {
	return Invocation{Command: execshell.CommandYarn, Arguments: []string{installSubcommandConstant}}
}

// npm refuses overrides for direct dependencies, so declared entries are rewritten in place.
type npmManager struct{}

func (npmManager) Name() string {
	return AgentNpm
}

func (npmManager) ApplyOverrides(document *manifest.Manifest, overrides map[string]string) error {
	if mergeError := document.Merge(overrides, manifest.SectionOverrides); mergeError != nil {
		return mergeError
	}
	for _, section := range []string{manifest.SectionDependencies, manifest.SectionDevDependencies} {
		updates := map[string]string{}
		for name, version := range overrides {
			if _, declared := document.Entry(section, name); declared {
				updates[name] = version
			}
		}
		if len(updates) == 0 {
			continue
		}
		if mergeError := document.Merge(updates, section); mergeError != nil {
			return mergeError
		}
	}
	return nil
}

func (npmManager) InstallInvocation() Invocation {
	return Invocation{Command: execshell.CommandNpm, Arguments: []string{installSubcommandConstant}}
}

// PinAgentVersion forces the agent version through packageManager, engines and a
// devDependencies entry for the agent itself when one is declared. It reports whether
// the manifest changed.
func PinAgentVersion(document *manifest.Manifest, agentName string, version string) (bool, error) {
	trimmedVersion := strings.TrimSpace(version)
	if len(trimmedVersion) == 0 {
		return false, nil
	}
	if setError := document.Set(agentName+identitySeparatorConstant+trimmedVersion, manifest.FieldPackageManager); setError != nil {
		return false, setError
	}
	if setError := document.Set(trimmedVersion, manifest.SectionEngines, agentName); setError != nil {
		return false, setError
	}
	if _, declared := document.Entry(manifest.SectionDevDependencies, agentName); declared {
		if setError := document.Set(trimmedVersion, manifest.SectionDevDependencies, agentName); setError != nil {
			return false, setError
		}
	}
	return true, nil
}
