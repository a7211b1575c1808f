package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultDatasetURL, cfg.DatasetURL)
	require.Equal(t, "file://mlruns", cfg.TrackingURI)
	require.Equal(t, "ElasticnetWineModel", cfg.ModelName)
	require.Equal(t, 0.25, cfg.TestSize)
	require.Equal(t, int64(40), cfg.Seed)
	require.Empty(t, cfg.Experiment)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	hcl := `
tracking_uri = "sqlite:///tracking.db"
experiment   = "wine-quality"
test_size    = 0.3
seed         = 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "winetrack.hcl"), []byte(hcl), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite:///tracking.db", cfg.TrackingURI)
	require.Equal(t, "wine-quality", cfg.Experiment)
	require.Equal(t, 0.3, cfg.TestSize)
	require.Equal(t, int64(7), cfg.Seed)
	// Unset keys keep their defaults.
	require.Equal(t, DefaultDatasetURL, cfg.DatasetURL)
	require.Equal(t, DefaultModelName, cfg.ModelName)
}

func TestLoadExplicitConfigPath(t *testing.T) {
	chdir(t, t.TempDir())

	path := filepath.Join(t.TempDir(), "custom.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`model_name = "WineModelV2"`), 0o644))
	t.Setenv(EnvConfig, path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "WineModelV2", cfg.ModelName)
}

func TestLoadExplicitConfigPathMissing(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "does-not-exist.hcl"))

	_, err := Load()
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "winetrack.hcl"),
		[]byte(`tracking_uri = "file://from-file"`), 0o644))
	t.Setenv(EnvTrackingURI, "http://localhost:5000")
	t.Setenv(EnvDatasetURL, "http://localhost:8080/wine.csv")
	t.Setenv(EnvExperiment, "override")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5000", cfg.TrackingURI)
	require.Equal(t, "http://localhost:8080/wine.csv", cfg.DatasetURL)
	require.Equal(t, "override", cfg.Experiment)
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "winetrack.hcl"),
		[]byte(`tracking_uri = `), 0o644))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty dataset url", func(c *Config) { c.DatasetURL = "" }},
		{"empty tracking uri", func(c *Config) { c.TrackingURI = "" }},
		{"empty model name", func(c *Config) { c.ModelName = "" }},
		{"test size zero", func(c *Config) { c.TestSize = 0 }},
		{"test size one", func(c *Config) { c.TestSize = 1 }},
		{"test size negative", func(c *Config) { c.TestSize = -0.1 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.Error(t, cfg.validate())
		})
	}
}
