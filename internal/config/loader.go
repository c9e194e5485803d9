package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".resforge"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for resforge settings.
const envPrefix = "RESFORGE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default values applied before any config file or environment override.
const (
	DefaultCompileOutputDir = "compiled"
	DefaultLinkPackageID    = 0x7f
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("compile.output_dir", DefaultCompileOutputDir)
	viperCfg.SetDefault("compile.legacy", false)

	viperCfg.SetDefault("link.package_name", "")
	viperCfg.SetDefault("link.package_id", DefaultLinkPackageID)
	viperCfg.SetDefault("link.auto_add_overlay", false)
	viperCfg.SetDefault("link.configs", []string{})
	viperCfg.SetDefault("link.include_paths", []string{})

	viperCfg.SetDefault("log.verbose", false)
	viperCfg.SetDefault("log.no_color", false)
}
