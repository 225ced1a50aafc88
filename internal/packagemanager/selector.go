package packagemanager

import (
	"context"
	"fmt"
	"strings"

	gateerrors "github.com/tyemirov/ecogate/internal/errors"
)

const (
	invalidAgentTemplateConstant    = "invalid agent %s. Allowed values: %s"
	undetectedAgentTemplateConstant = "failed to detect package manager in %s"
	detectorMissingMessageConstant  = "package manager detector not configured"
)

// Select resolves the agent for directory. An explicit agent must be allow-listed;
// otherwise the detector decides.
func Select(executionContext context.Context, explicit string, detector AgentDetector, directory string) (Identity, error) {
	trimmedExplicit := strings.TrimSpace(explicit)
	if len(trimmedExplicit) > 0 {
		if !IsSupported(Identity(trimmedExplicit).Name()) {
			return "", gateerrors.WrapMessage(gateerrors.OperationConfig, trimmedExplicit, gateerrors.ErrAgentUnsupported, fmt.Sprintf(invalidAgentTemplateConstant, trimmedExplicit, allowListDescription()))
		}
		return Identity(trimmedExplicit), nil
	}

	if detector == nil {
		return "", gateerrors.WrapMessage(gateerrors.OperationConfig, directory, gateerrors.ErrAgentUndetected, detectorMissingMessageConstant)
	}
	identity, detected, detectError := detector.Detect(executionContext, directory)
	if detectError != nil {
		return "", gateerrors.Wrap(gateerrors.OperationConfig, directory, gateerrors.ErrAgentUndetected, detectError)
	}
	if !detected {
		return "", gateerrors.WrapMessage(gateerrors.OperationConfig, directory, gateerrors.ErrAgentUndetected, fmt.Sprintf(undetectedAgentTemplateConstant, directory))
	}
	if !IsSupported(identity.Name()) {
		return "", gateerrors.WrapMessage(gateerrors.OperationConfig, identity.String(), gateerrors.ErrAgentUnsupported, fmt.Sprintf(invalidAgentTemplateConstant, identity, allowListDescription()))
	}
	return identity, nil
}
