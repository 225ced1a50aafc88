package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorConstant              = "_"
	configurationKeySeparatorConstant            = "."
	embeddedConfigurationReadErrorTemplate       = "unable to read embedded configuration: %w"
	configurationFileReadErrorTemplateConstant   = "unable to read configuration file %s: %w"
	configurationDecodeErrorTemplateConstant     = "unable to decode configuration: %w"
	configurationTargetMissingMessageConstant    = "configuration target not provided"
	configurationSliceSeparatorConstant          = ","
	configurationFileExtensionSeparatorConstant  = "."
	configurationSearchPathStatErrorTemplateText = "unable to inspect configuration path %s: %w"
)

// LoadedConfiguration reports metadata about a configuration load.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader merges defaults, embedded configuration, a configuration file and environment variables.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// NewConfigurationLoader constructs a ConfigurationLoader searching the provided paths in order.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string{}, searchPaths...),
	}
}

// SetEmbeddedConfiguration registers configuration content layered between defaults and files.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	loader.embeddedConfiguration = append([]byte{}, configurationData...)
	loader.embeddedConfigurationType = configurationType
}

// LoadConfiguration decodes the merged configuration into target.
// Precedence from lowest to highest: defaults, embedded configuration, configuration file, environment.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	if target == nil {
		return LoadedConfiguration{}, errors.New(configurationTargetMissingMessageConstant)
	}

	viperInstance := viper.New()
	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(loader.embeddedConfiguration) > 0 {
		viperInstance.SetConfigType(loader.resolveEmbeddedConfigurationType())
		if readError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationReadErrorTemplate, readError)
		}
	}

	resolvedFilePath, resolveError := loader.resolveConfigurationFile(configurationFilePath)
	if resolveError != nil {
		return LoadedConfiguration{}, resolveError
	}
	if len(resolvedFilePath) > 0 {
		viperInstance.SetConfigFile(resolvedFilePath)
		if mergeError := viperInstance.MergeInConfig(); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationFileReadErrorTemplateConstant, resolvedFilePath, mergeError)
		}
	}

	if len(loader.environmentPrefix) > 0 {
		viperInstance.SetEnvPrefix(loader.environmentPrefix)
	}
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
	viperInstance.AutomaticEnv()

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(configurationSliceSeparatorConstant),
	))
	if decodeError := viperInstance.Unmarshal(target, decodeHook); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplateConstant, decodeError)
	}

	return LoadedConfiguration{ConfigFileUsed: resolvedFilePath}, nil
}

func (loader *ConfigurationLoader) resolveEmbeddedConfigurationType() string {
	if len(strings.TrimSpace(loader.embeddedConfigurationType)) > 0 {
		return loader.embeddedConfigurationType
	}
	return loader.configurationType
}

func (loader *ConfigurationLoader) resolveConfigurationFile(explicitFilePath string) (string, error) {
	trimmedExplicitPath := strings.TrimSpace(explicitFilePath)
	if len(trimmedExplicitPath) > 0 {
		return trimmedExplicitPath, nil
	}

	configurationFileName := loader.configurationName + configurationFileExtensionSeparatorConstant + loader.configurationType
	for _, searchPath := range loader.searchPaths {
		trimmedSearchPath := strings.TrimSpace(searchPath)
		if len(trimmedSearchPath) == 0 {
			continue
		}
		candidatePath := filepath.Join(trimmedSearchPath, configurationFileName)
		candidateInfo, statError := os.Stat(candidatePath)
		if statError != nil {
			if errors.Is(statError, os.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf(configurationSearchPathStatErrorTemplateText, candidatePath, statError)
		}
		if candidateInfo.IsDir() {
			continue
		}
		return candidatePath, nil
	}
	return "", nil
}
