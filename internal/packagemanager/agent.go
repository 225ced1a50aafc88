package packagemanager

import (
	"sort"
	"strings"

	"github.com/tyemirov/ecogate/internal/execshell"
)

const (
	identitySeparatorConstant  = "@"
	allowListSeparatorConstant = ", "
)

// Supported agent names.
const (
	AgentNpm  = "npm"
	AgentYarn = "yarn"
	AgentPnpm = "pnpm"
)

// Identity is a detected package manager such as "pnpm", "yarn@berry" or "pnpm@6".
type Identity string

// Name returns the agent name without the flavor suffix.
func (identity Identity) Name() string {
	name, _, _ := strings.Cut(string(identity), identitySeparatorConstant)
	return name
}

// String implements fmt.Stringer.
func (identity Identity) String() string {
	return string(identity)
}

var supportedAgents = map[string]execshell.CommandName{
	AgentNpm:  execshell.CommandNpm,
	AgentYarn: execshell.CommandYarn,
	AgentPnpm: execshell.CommandPnpm,
}

// IsSupported reports whether the agent name is on the allow-list.
func IsSupported(name string) bool {
	_, supported := supportedAgents[name]
	return supported
}

// SupportedAgents lists the allow-listed agent names.
func SupportedAgents() []string {
	names := make([]string, 0, len(supportedAgents))
	for name := range supportedAgents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func allowListDescription() string {
	return strings.Join(SupportedAgents(), allowListSeparatorConstant)
}

func commandFor(name string) execshell.CommandName {
	return supportedAgents[name]
}
