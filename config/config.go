// Package config loads the winetrack runtime configuration. Values come from
// three layers, later layers winning: built-in defaults, an optional HCL file
// (winetrack.hcl in the working directory, or the path in WINETRACK_CONFIG),
// and WINETRACK_* environment variables.
package config

import (
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

// Environment variables recognized by Load.
const (
	EnvConfig      = "WINETRACK_CONFIG"
	EnvTrackingURI = "WINETRACK_TRACKING_URI"
	EnvDatasetURL  = "WINETRACK_DATASET_URL"
	EnvExperiment  = "WINETRACK_EXPERIMENT"
	EnvLogLevel    = "WINETRACK_LOG_LEVEL"
)

// Defaults applied before any file or environment override.
const (
	DefaultDatasetURL  = "https://raw.githubusercontent.com/mlflow/mlflow/master/tests/datasets/winequality-red.csv"
	DefaultTrackingURI = "file://mlruns"
	DefaultModelName   = "ElasticnetWineModel"
	DefaultTestSize    = 0.25
	DefaultSeed        = 40
	DefaultLogLevel    = "info"

	defaultConfigFile = "winetrack.hcl"
)

// Config holds everything the training pipeline needs besides the
// hyperparameters themselves.
type Config struct {
	// DatasetURL is where the wine-quality CSV is fetched from.
	DatasetURL string
	// TrackingURI selects the tracking backend (file://, http(s)://, sqlite://).
	TrackingURI string
	// Experiment is the tracking experiment name; empty means the default
	// experiment.
	Experiment string
	// ModelName is the registered-model name used when the backend has a
	// registry.
	ModelName string
	// TestSize is the held-out fraction of rows, in (0, 1).
	TestSize float64
	// Seed drives the train/test shuffle so a run can be reproduced.
	Seed int64
	// LogLevel is the slog level name (debug, info, warn, error).
	LogLevel string
}

// hclConfigFile mirrors the winetrack.hcl schema. Pointer fields distinguish
// "absent" from a zero value.
type hclConfigFile struct {
	DatasetURL  *string  `hcl:"dataset_url,optional"`
	TrackingURI *string  `hcl:"tracking_uri,optional"`
	Experiment  *string  `hcl:"experiment,optional"`
	ModelName   *string  `hcl:"model_name,optional"`
	TestSize    *float64 `hcl:"test_size,optional"`
	Seed        *int64   `hcl:"seed,optional"`
	LogLevel    *string  `hcl:"log_level,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DatasetURL:  DefaultDatasetURL,
		TrackingURI: DefaultTrackingURI,
		ModelName:   DefaultModelName,
		TestSize:    DefaultTestSize,
		Seed:        DefaultSeed,
		LogLevel:    DefaultLogLevel,
	}
}

// Load resolves the configuration from defaults, the optional HCL file and
// the environment, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	path := os.Getenv(EnvConfig)
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, errors.Wrapf(err, "config file %s not readable", path)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return errors.Wrapf(diags, "failed to parse config file %s", path)
	}

	var parsed hclConfigFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return errors.Wrapf(diags, "failed to decode config file %s", path)
	}

	if parsed.DatasetURL != nil {
		c.DatasetURL = *parsed.DatasetURL
	}
	if parsed.TrackingURI != nil {
		c.TrackingURI = *parsed.TrackingURI
	}
	if parsed.Experiment != nil {
		c.Experiment = *parsed.Experiment
	}
	if parsed.ModelName != nil {
		c.ModelName = *parsed.ModelName
	}
	if parsed.TestSize != nil {
		c.TestSize = *parsed.TestSize
	}
	if parsed.Seed != nil {
		c.Seed = *parsed.Seed
	}
	if parsed.LogLevel != nil {
		c.LogLevel = *parsed.LogLevel
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvTrackingURI); v != "" {
		c.TrackingURI = v
	}
	if v := os.Getenv(EnvDatasetURL); v != "" {
		c.DatasetURL = v
	}
	if v := os.Getenv(EnvExperiment); v != "" {
		c.Experiment = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.DatasetURL == "" {
		return errors.NewValidationError("dataset_url", "must not be empty", c.DatasetURL)
	}
	if c.TrackingURI == "" {
		return errors.NewValidationError("tracking_uri", "must not be empty", c.TrackingURI)
	}
	if c.ModelName == "" {
		return errors.NewValidationError("model_name", "must not be empty", c.ModelName)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return errors.NewValidationError("test_size", "must be in (0, 1)", c.TestSize)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewValidationError("log_level", "must be one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}
