package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-tools/resforge/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	// An explicit path that does not exist should not silently fall back.
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultCompileOutputDir, cfg.Compile.OutputDir)
	assert.False(t, cfg.Compile.Legacy)
	assert.Equal(t, config.DefaultLinkPackageID, cfg.Link.PackageID)
	assert.Empty(t, cfg.Link.PackageName)
	assert.False(t, cfg.Link.AutoAddOverlay)
	assert.Empty(t, cfg.Link.Configs)
	assert.False(t, cfg.Log.Verbose)
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".resforge.yaml")
	content := `
compile:
  output_dir: build/flat
  legacy: true
link:
  package_name: com.example.app
  package_id: 127
  auto_add_overlay: true
  configs:
    - en
    - hdpi
log:
  verbose: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "build/flat", cfg.Compile.OutputDir)
	assert.True(t, cfg.Compile.Legacy)
	assert.Equal(t, "com.example.app", cfg.Link.PackageName)
	assert.Equal(t, 0x7f, cfg.Link.PackageID)
	assert.True(t, cfg.Link.AutoAddOverlay)
	assert.Equal(t, []string{"en", "hdpi"}, cfg.Link.Configs)
	assert.True(t, cfg.Log.Verbose)
}

func TestValidate_PackageIDRange(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Link: config.LinkConfig{PackageID: 0}}
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidPackageID)

	cfg.Link.PackageID = 0x100
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidPackageID)

	cfg.Link.PackageID = 0x7f
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ConfigQualifiers(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Link: config.LinkConfig{
		PackageID: 0x7f,
		Configs:   []string{"en", "bogus"},
	}}
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)

	cfg.Link.Configs = []string{"en-rUS", "hdpi"}
	assert.NoError(t, cfg.Validate())
}
