package config

import (
	"errors"
	"fmt"

	"github.com/kestrel-tools/resforge/pkg/configdesc"
)

// Config is the top-level configuration struct for resforge.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Compile CompileConfig `mapstructure:"compile"`
	Link    LinkConfig    `mapstructure:"link"`
	Log     LogConfig     `mapstructure:"log"`
}

// CompileConfig holds settings for turning resource files into compiled
// containers.
type CompileConfig struct {
	// OutputDir receives the compiled containers.
	OutputDir string `mapstructure:"output_dir"`
	// Legacy downgrades some strict-mode errors to warnings, matching the
	// behavior of older toolchains.
	Legacy bool `mapstructure:"legacy"`
}

// LinkConfig holds settings for merging compiled containers into the final
// table.
type LinkConfig struct {
	// PackageName is the compilation package everything merges under.
	PackageName string `mapstructure:"package_name"`
	// PackageID is the numeric package ID assigned during linking.
	PackageID int `mapstructure:"package_id"`
	// AutoAddOverlay lets overlays introduce resources the base does not
	// declare.
	AutoAddOverlay bool `mapstructure:"auto_add_overlay"`
	// Configs restricts the output to values matching these configuration
	// qualifiers. Empty means keep everything.
	Configs []string `mapstructure:"configs"`
	// IncludePaths are compiled dependency tables consulted when resolving
	// references.
	IncludePaths []string `mapstructure:"include_paths"`
}

// LogConfig holds diagnostics output settings.
type LogConfig struct {
	Verbose bool `mapstructure:"verbose"`
	NoColor bool `mapstructure:"no_color"`
}

// Package ID bounds. 0x01 is the system package; app packages
// conventionally start at 0x7f.
const (
	packageIDMin = 0x01
	packageIDMax = 0xff
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidPackageID indicates the package ID is out of range.
	ErrInvalidPackageID = errors.New("link.package_id must be between 0x01 and 0xff")
	// ErrInvalidConfig indicates a configuration qualifier failed to parse.
	ErrInvalidConfig = errors.New("link.configs contains an invalid qualifier")
)

// Validate checks value ranges and cross-field consistency.
func (c *Config) Validate() error {
	if c.Link.PackageID < packageIDMin || c.Link.PackageID > packageIDMax {
		return fmt.Errorf("%w: got 0x%02x", ErrInvalidPackageID, c.Link.PackageID)
	}

	for _, qualifier := range c.Link.Configs {
		if _, err := configdesc.Parse(qualifier); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	return nil
}
