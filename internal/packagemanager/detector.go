package packagemanager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/tyemirov/ecogate/internal/manifest"
)

const (
	packageManagerFieldConstant          = "packageManager"
	versionRangePrefixConstant           = "^"
	semverPrefixConstant                 = "v"
	yarnBerryMinimumVersionConstant      = "v2.0.0"
	pnpmModernMinimumVersionConstant     = "v7.0.0"
	yarnBerryFlavorConstant              = "berry"
	pnpmLegacyFlavorConstant             = "6"
	agentBunConstant                     = "bun"
	unknownPackageManagerMessageConstant = "unknown packageManager field, falling back to lockfiles"
	directoryFieldNameConstant           = "directory"
	packageManagerFieldNameConstant      = "package_manager"
	detectReadErrorTemplateConstant      = "inspect %s: %w"
)

type lockfile struct {
	fileName string
	identity Identity
}

// Lockfiles in detection order.
var lockfiles = []lockfile{
	{fileName: "pnpm-lock.yaml", identity: Identity(AgentPnpm)},
	{fileName: "yarn.lock", identity: Identity(AgentYarn)},
	{fileName: "package-lock.json", identity: Identity(AgentNpm)},
	{fileName: "npm-shrinkwrap.json", identity: Identity(AgentNpm)},
	{fileName: "bun.lockb", identity: Identity(agentBunConstant)},
	{fileName: "bun.lock", identity: Identity(agentBunConstant)},
}

var knownPackageManagers = map[string]struct{}{
	AgentNpm:         {},
	AgentYarn:        {},
	AgentPnpm:        {},
	agentBunConstant: {},
}

// AgentDetector identifies the package manager of a project directory.
type AgentDetector interface {
	Detect(executionContext context.Context, directory string) (Identity, bool, error)
}

// Detector inspects package.json and lockfiles without touching the network.
type Detector struct {
	logger *zap.Logger
}

// NewDetector constructs a Detector. A nil logger discards diagnostics.
func NewDetector(logger *zap.Logger) Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Detector{logger: logger}
}

// Detect returns the identity of the package manager used in directory.
// The packageManager field wins over lockfiles.
func (detector Detector) Detect(executionContext context.Context, directory string) (Identity, bool, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return "", false, contextError
	}

	manifestPath := filepath.Join(directory, manifest.FileName)
	contents, readError := os.ReadFile(manifestPath)
	switch {
	case readError == nil:
		if identity, found := detector.identityFromField(directory, contents); found {
			return identity, true, nil
		}
	case !errors.Is(readError, fs.ErrNotExist):
		return "", false, fmt.Errorf(detectReadErrorTemplateConstant, manifestPath, readError)
	}

	for _, candidate := range lockfiles {
		lockfilePath := filepath.Join(directory, candidate.fileName)
		_, statError := os.Stat(lockfilePath)
		if statError == nil {
			return candidate.identity, true, nil
		}
		if !errors.Is(statError, fs.ErrNotExist) {
			return "", false, fmt.Errorf(detectReadErrorTemplateConstant, lockfilePath, statError)
		}
	}
	return "", false, nil
}

func (detector Detector) identityFromField(directory string, contents []byte) (Identity, bool) {
	field := strings.TrimSpace(gjson.GetBytes(contents, packageManagerFieldConstant).String())
	if len(field) == 0 {
		return "", false
	}
	name, version, _ := strings.Cut(strings.TrimPrefix(field, versionRangePrefixConstant), identitySeparatorConstant)
	if _, known := knownPackageManagers[name]; !known {
		detector.logger.Warn(unknownPackageManagerMessageConstant,
			zap.String(directoryFieldNameConstant, directory),
			zap.String(packageManagerFieldNameConstant, field),
		)
		return "", false
	}
	return Identity(classify(name, version)), true
}

func classify(name string, version string) string {
	canonical := canonicalVersion(version)
	if len(canonical) == 0 {
		return name
	}
	switch {
	case name == AgentYarn && semver.Compare(canonical, yarnBerryMinimumVersionConstant) >= 0:
		return name + identitySeparatorConstant + yarnBerryFlavorConstant
	case name == AgentPnpm && semver.Compare(canonical, pnpmModernMinimumVersionConstant) < 0:
		return name + identitySeparatorConstant + pnpmLegacyFlavorConstant
	default:
		return name
	}
}

// canonicalVersion turns a packageManager version like "9.1.0+sha512.abc" into a comparable semver.
func canonicalVersion(version string) string {
	trimmed := strings.TrimSpace(version)
	if len(trimmed) == 0 {
		return ""
	}
	candidate := semverPrefixConstant + trimmed
	if !semver.IsValid(candidate) {
		return ""
	}
	return semver.Canonical(candidate)
}
