// Package configdesc models configuration qualifiers: the dash-separated
// axis values (locale, screen traits, density, platform version) that narrow
// which device states a resource value applies to. Qualifiers in a string
// must appear in axis order, and configurations are totally ordered so that
// value lists stay deterministic.
package configdesc

import (
	"fmt"
	"strconv"
	"strings"
)

// Axis bit flags, in precedence order. Diff and DefinedAxes report these.
const (
	AxisLanguage uint32 = 1 << iota
	AxisRegion
	AxisScreenSize
	AxisOrientation
	AxisDensity
	AxisVersion
)

// ScreenSize is the screen-layout size bucket.
type ScreenSize uint8

// Screen size buckets.
const (
	ScreenSizeAny ScreenSize = iota
	ScreenSizeSmall
	ScreenSizeNormal
	ScreenSizeLarge
	ScreenSizeXLarge
)

// Orientation is the device orientation qualifier.
type Orientation uint8

// Orientation values.
const (
	OrientationAny Orientation = iota
	OrientationPort
	OrientationLand
	OrientationSquare
)

// Density is the screen density qualifier in dots per inch. The two sentinel
// values mark density-independent ("nodpi") and scale-to-anything ("anydpi")
// resources.
type Density uint16

// Well-known densities.
const (
	DensityDefault Density = 0
	DensityLow     Density = 120
	DensityMedium  Density = 160
	DensityTV      Density = 213
	DensityHigh    Density = 240
	DensityXHigh   Density = 320
	DensityXXHigh  Density = 480
	DensityXXXHigh Density = 640
	DensityAny     Density = 0xfffe
	DensityNone    Density = 0xffff
)

// Config is an ordered set of qualifier axes. The zero value is the default
// configuration (no qualifiers).
type Config struct {
	Language    string
	Region      string
	ScreenSize  ScreenSize
	Orientation Orientation
	Density     Density
	SDKVersion  uint16
}

// Default returns the default (empty) configuration.
func Default() Config {
	return Config{}
}

// IsDefault reports whether no qualifier axis is set.
func (c Config) IsDefault() bool {
	return c == Config{}
}

// DefinedAxes returns the bitmask of axes this configuration sets.
func (c Config) DefinedAxes() uint32 {
	var mask uint32

	if c.Language != "" {
		mask |= AxisLanguage
	}

	if c.Region != "" {
		mask |= AxisRegion
	}

	if c.ScreenSize != ScreenSizeAny {
		mask |= AxisScreenSize
	}

	if c.Orientation != OrientationAny {
		mask |= AxisOrientation
	}

	if c.Density != DensityDefault {
		mask |= AxisDensity
	}

	if c.SDKVersion != 0 {
		mask |= AxisVersion
	}

	return mask
}

// Diff returns the bitmask of axes on which c and o disagree.
func (c Config) Diff(o Config) uint32 {
	var mask uint32

	if c.Language != o.Language {
		mask |= AxisLanguage
	}

	if c.Region != o.Region {
		mask |= AxisRegion
	}

	if c.ScreenSize != o.ScreenSize {
		mask |= AxisScreenSize
	}

	if c.Orientation != o.Orientation {
		mask |= AxisOrientation
	}

	if c.Density != o.Density {
		mask |= AxisDensity
	}

	if c.SDKVersion != o.SDKVersion {
		mask |= AxisVersion
	}

	return mask
}

// MoreSpecificThan reports whether c defines an axis that o does not, walking
// axes in precedence order. Equal configurations are not more specific than
// each other.
func (c Config) MoreSpecificThan(o Config) bool {
	cAxes, oAxes := c.DefinedAxes(), o.DefinedAxes()
	if cAxes == oAxes {
		return false
	}

	for bit := AxisLanguage; bit <= AxisVersion; bit <<= 1 {
		cHas, oHas := cAxes&bit != 0, oAxes&bit != 0
		if cHas != oHas {
			return cHas
		}
	}

	return false
}

// Compare imposes a deterministic total order on configurations: less
// specific sorts first, and equally-specific configurations order by their
// qualifier string.
func (c Config) Compare(o Config) int {
	if c == o {
		return 0
	}

	if c.MoreSpecificThan(o) {
		return 1
	}

	if o.MoreSpecificThan(c) {
		return -1
	}

	return strings.Compare(c.String(), o.String())
}

// WithImpliedVersion returns c with the platform version qualifier that its
// other qualifiers imply. A density qualifier requires at least v4; configs
// that already carry a version are returned unchanged.
func (c Config) WithImpliedVersion() Config {
	if c.SDKVersion != 0 {
		return c
	}

	if c.Density != DensityDefault {
		c.SDKVersion = 4
	}

	return c
}

// String renders the configuration as its dash-joined qualifier string. The
// default configuration renders as the empty string.
func (c Config) String() string {
	var parts []string

	if c.Language != "" {
		parts = append(parts, c.Language)
	}

	if c.Region != "" {
		parts = append(parts, "r"+c.Region)
	}

	switch c.ScreenSize {
	case ScreenSizeSmall:
		parts = append(parts, "small")
	case ScreenSizeNormal:
		parts = append(parts, "normal")
	case ScreenSizeLarge:
		parts = append(parts, "large")
	case ScreenSizeXLarge:
		parts = append(parts, "xlarge")
	case ScreenSizeAny:
	}

	switch c.Orientation {
	case OrientationPort:
		parts = append(parts, "port")
	case OrientationLand:
		parts = append(parts, "land")
	case OrientationSquare:
		parts = append(parts, "square")
	case OrientationAny:
	}

	switch c.Density {
	case DensityLow:
		parts = append(parts, "ldpi")
	case DensityMedium:
		parts = append(parts, "mdpi")
	case DensityTV:
		parts = append(parts, "tvdpi")
	case DensityHigh:
		parts = append(parts, "hdpi")
	case DensityXHigh:
		parts = append(parts, "xhdpi")
	case DensityXXHigh:
		parts = append(parts, "xxhdpi")
	case DensityXXXHigh:
		parts = append(parts, "xxxhdpi")
	case DensityAny:
		parts = append(parts, "anydpi")
	case DensityNone:
		parts = append(parts, "nodpi")
	case DensityDefault:
	default:
		parts = append(parts, fmt.Sprintf("%ddpi", uint16(c.Density)))
	}

	if c.SDKVersion != 0 {
		parts = append(parts, fmt.Sprintf("v%d", c.SDKVersion))
	}

	return strings.Join(parts, "-")
}

// Parse parses a dash-joined qualifier string. Qualifiers must appear in
// axis order; the empty string yields the default configuration. The error
// names the first qualifier that could not be matched.
func Parse(s string) (Config, error) {
	var cfg Config

	if s == "" {
		return cfg, nil
	}

	parts := strings.Split(s, "-")
	i := 0

	if i < len(parts) && isLanguage(parts[i]) {
		cfg.Language = strings.ToLower(parts[i])
		i++

		if i < len(parts) && isRegion(parts[i]) {
			cfg.Region = strings.ToUpper(parts[i][1:])
			i++
		}
	}

	if i < len(parts) {
		if size, ok := parseScreenSize(parts[i]); ok {
			cfg.ScreenSize = size
			i++
		}
	}

	if i < len(parts) {
		if orient, ok := parseOrientation(parts[i]); ok {
			cfg.Orientation = orient
			i++
		}
	}

	if i < len(parts) {
		if density, ok := parseDensity(parts[i]); ok {
			cfg.Density = density
			i++
		}
	}

	if i < len(parts) {
		if version, ok := parseVersion(parts[i]); ok {
			cfg.SDKVersion = version
			i++
		}
	}

	if i != len(parts) {
		return Config{}, fmt.Errorf("invalid configuration qualifier %q in %q", parts[i], s)
	}

	return cfg, nil
}

func isLanguage(s string) bool {
	if len(s) != 2 && len(s) != 3 {
		return false
	}

	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}

	return true
}

func isRegion(s string) bool {
	if len(s) != 3 || s[0] != 'r' {
		return false
	}

	for _, r := range s[1:] {
		if r < 'A' || r > 'Z' {
			return false
		}
	}

	return true
}

func parseScreenSize(s string) (ScreenSize, bool) {
	switch s {
	case "small":
		return ScreenSizeSmall, true
	case "normal":
		return ScreenSizeNormal, true
	case "large":
		return ScreenSizeLarge, true
	case "xlarge":
		return ScreenSizeXLarge, true
	default:
		return ScreenSizeAny, false
	}
}

func parseOrientation(s string) (Orientation, bool) {
	switch s {
	case "port":
		return OrientationPort, true
	case "land":
		return OrientationLand, true
	case "square":
		return OrientationSquare, true
	default:
		return OrientationAny, false
	}
}

func parseDensity(s string) (Density, bool) {
	switch s {
	case "ldpi":
		return DensityLow, true
	case "mdpi":
		return DensityMedium, true
	case "tvdpi":
		return DensityTV, true
	case "hdpi":
		return DensityHigh, true
	case "xhdpi":
		return DensityXHigh, true
	case "xxhdpi":
		return DensityXXHigh, true
	case "xxxhdpi":
		return DensityXXXHigh, true
	case "anydpi":
		return DensityAny, true
	case "nodpi":
		return DensityNone, true
	}

	if !strings.HasSuffix(s, "dpi") {
		return DensityDefault, false
	}

	n, err := strconv.ParseUint(strings.TrimSuffix(s, "dpi"), 10, 16)
	if err != nil || n == 0 {
		return DensityDefault, false
	}

	return Density(n), true
}

func parseVersion(s string) (uint16, bool) {
	if len(s) < 2 || s[0] != 'v' {
		return 0, false
	}

	n, err := strconv.ParseUint(s[1:], 10, 16)
	if err != nil || n == 0 {
		return 0, false
	}

	return uint16(n), true
}
