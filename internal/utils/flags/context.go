package flags

const (
	// WorkspaceFlagName exposes the shared workspace flag name.
	WorkspaceFlagName = "workspace"
	// WorkspaceFlagUsage describes the shared workspace flag purpose.
	WorkspaceFlagUsage = "Workspace root that holds one checkout per suite"
	// AgentFlagName exposes the shared package manager flag name.
	AgentFlagName = "agent"
	// AgentFlagUsage describes the shared package manager flag purpose.
	AgentFlagUsage = "Package manager to use instead of detecting it (npm, yarn or pnpm)"
	// AgentVersionFlagName exposes the shared package manager version flag name.
	AgentVersionFlagName = "agent-version"
	// AgentVersionFlagUsage describes the shared package manager version flag purpose.
	AgentVersionFlagUsage = "Package manager version pinned into the manifest"
)
