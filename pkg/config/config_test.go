package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("SUBJECTS_DIR", "/data/subjects")
	cfg := DefaultConfig()
	assert.Equal(t, "/data/subjects", cfg.Paths.SubjectsDir)
	assert.Equal(t, 5, cfg.Morph.SmoothSteps)
	assert.Equal(t, "white", cfg.Morph.Surf)
	assert.Equal(t, 5.0, cfg.Grow.ExtentMM)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nothere.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Morph.SmoothSteps, cfg.Morph.SmoothSteps)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "neurolabel.yaml")

	cfg := DefaultConfig()
	cfg.Paths.SubjectsDir = "/somewhere/subjects"
	cfg.Morph.SmoothSteps = 3
	cfg.Grow.ExtentMM = 12.5
	cfg.Output.Verbose = true
	require.NoError(t, SaveConfig(cfg, path))

	cfg2, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, cfg2)
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\t{not yaml"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
