package configdesc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-tools/resforge/pkg/configdesc"
)

func TestParse_Default(t *testing.T) {
	t.Parallel()

	cfg, err := configdesc.Parse("")
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
	assert.Equal(t, "", cfg.String())
}

func TestParse_LanguageAndRegion(t *testing.T) {
	t.Parallel()

	cfg, err := configdesc.Parse("fr-rFR")
	require.NoError(t, err)

	assert.Equal(t, "fr", cfg.Language)
	assert.Equal(t, "FR", cfg.Region)
	assert.Equal(t, "fr-rFR", cfg.String())
}

func TestParse_AllAxes(t *testing.T) {
	t.Parallel()

	cfg, err := configdesc.Parse("en-rUS-large-land-hdpi-v21")
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, "US", cfg.Region)
	assert.Equal(t, configdesc.ScreenSizeLarge, cfg.ScreenSize)
	assert.Equal(t, configdesc.OrientationLand, cfg.Orientation)
	assert.Equal(t, configdesc.DensityHigh, cfg.Density)
	assert.Equal(t, uint16(21), cfg.SDKVersion)
	assert.Equal(t, "en-rUS-large-land-hdpi-v21", cfg.String())
}

func TestParse_NumericDensity(t *testing.T) {
	t.Parallel()

	cfg, err := configdesc.Parse("280dpi")
	require.NoError(t, err)
	assert.Equal(t, configdesc.Density(280), cfg.Density)
	assert.Equal(t, "280dpi", cfg.String())
}

func TestParse_NamesOffendingQualifier(t *testing.T) {
	t.Parallel()

	_, err := configdesc.Parse("en-bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")

	// Qualifiers out of axis order are rejected too.
	_, err = configdesc.Parse("hdpi-en")
	require.Error(t, err)
}

func TestDefinedAxesAndDiff(t *testing.T) {
	t.Parallel()

	en := mustParse(t, "en")
	frFR := mustParse(t, "fr-rFR")

	assert.Equal(t, configdesc.AxisLanguage, en.DefinedAxes())
	assert.Equal(t, configdesc.AxisLanguage|configdesc.AxisRegion, frFR.DefinedAxes())
	assert.Equal(t, configdesc.AxisLanguage|configdesc.AxisRegion, en.Diff(frFR))
	assert.Zero(t, en.Diff(en))
}

func TestMoreSpecificThan(t *testing.T) {
	t.Parallel()

	def := configdesc.Default()
	en := mustParse(t, "en")
	enUS := mustParse(t, "en-rUS")

	assert.True(t, en.MoreSpecificThan(def))
	assert.True(t, enUS.MoreSpecificThan(en))
	assert.False(t, def.MoreSpecificThan(en))
	assert.False(t, en.MoreSpecificThan(en))
}

func TestCompare_TotalOrder(t *testing.T) {
	t.Parallel()

	def := configdesc.Default()
	en := mustParse(t, "en")
	fr := mustParse(t, "fr")

	assert.Equal(t, 0, en.Compare(en))
	assert.Equal(t, -1, def.Compare(en))
	assert.Equal(t, 1, en.Compare(def))

	// Equally specific configurations fall back to string order.
	assert.Equal(t, -1, en.Compare(fr))
	assert.Equal(t, 1, fr.Compare(en))
}

func TestWithImpliedVersion(t *testing.T) {
	t.Parallel()

	hdpi := mustParse(t, "hdpi")
	assert.Equal(t, "hdpi-v4", hdpi.WithImpliedVersion().String())

	// An explicit version wins over the implied one.
	hdpiV21 := mustParse(t, "hdpi-v21")
	assert.Equal(t, "hdpi-v21", hdpiV21.WithImpliedVersion().String())

	// No density, nothing implied.
	en := mustParse(t, "en")
	assert.Equal(t, "en", en.WithImpliedVersion().String())
}

func mustParse(t *testing.T, s string) configdesc.Config {
	t.Helper()

	cfg, err := configdesc.Parse(s)
	require.NoError(t, err)

	return cfg
}
