// Package config holds the run configuration shared by the GUI and the
// command line tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full run configuration.
type Config struct {
	DataDir    string   `yaml:"data_dir"`
	Subject    int      `yaml:"subject"`
	ReportDir  string   `yaml:"report_dir"`
	HistoryDB  string   `yaml:"history_db"`
	LabelNames []string `yaml:"label_names,omitempty"`

	Preprocess PreprocessConfig `yaml:"preprocess"`
	CSP        CSPConfig        `yaml:"csp"`
	Training   TrainingConfig   `yaml:"training"`
}

// PreprocessConfig configures the band-pass filter.
type PreprocessConfig struct {
	SampleRate float64 `yaml:"sample_rate"`
	LowHz      float64 `yaml:"low_hz"`
	HighHz     float64 `yaml:"high_hz"`
	Order      int     `yaml:"order"`
}

// CSPConfig configures feature extraction.
type CSPConfig struct {
	Components  int     `yaml:"components"`
	Reg         float64 `yaml:"reg"`
	FallbackReg float64 `yaml:"fallback_reg"`
}

// TrainingConfig configures the split and the grid search.
type TrainingConfig struct {
	TestFraction float64 `yaml:"test_fraction"`
	Seed         int64   `yaml:"seed"`
	Folds        int     `yaml:"folds"`
	Workers      int     `yaml:"workers"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		DataDir:   "data",
		Subject:   1,
		ReportDir: "reports",
		HistoryDB: "bci-history.db",
		Preprocess: PreprocessConfig{
			SampleRate: 250,
			LowHz:      8,
			HighHz:     30,
			Order:      4,
		},
		CSP: CSPConfig{
			Components:  4,
			Reg:         0.1,
			FallbackReg: 1.0,
		},
		Training: TrainingConfig{
			TestFraction: 0.3,
			Seed:         42,
			Folds:        5,
			Workers:      runtime.NumCPU(),
		},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from BCI_* environment variables.
func (c *Config) ApplyEnv() {
	c.DataDir = getEnv("BCI_DATA_DIR", c.DataDir)
	c.Subject = getEnvAsInt("BCI_SUBJECT", c.Subject)
	c.HistoryDB = getEnv("BCI_HISTORY_DB", c.HistoryDB)
	c.ReportDir = getEnv("BCI_REPORT_DIR", c.ReportDir)
	c.Training.Workers = getEnvAsInt("BCI_WORKERS", c.Training.Workers)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	p := c.Preprocess
	switch {
	case c.Subject < 1:
		return fmt.Errorf("subject must be positive, got %d", c.Subject)
	case p.SampleRate <= 0:
		return errors.New("sample_rate must be positive")
	case p.Order < 1:
		return fmt.Errorf("filter order must be positive, got %d", p.Order)
	case !(p.LowHz > 0 && p.LowHz < p.HighHz && p.HighHz < p.SampleRate/2):
		return fmt.Errorf("band %g-%g Hz invalid for %g Hz sampling", p.LowHz, p.HighHz, p.SampleRate)
	}

	s := c.CSP
	switch {
	case s.Components < 1:
		return fmt.Errorf("csp components must be positive, got %d", s.Components)
	case s.Reg < 0 || s.Reg > 1 || s.FallbackReg > 1:
		return fmt.Errorf("csp regularization must lie in [0, 1]")
	case s.FallbackReg <= s.Reg:
		return fmt.Errorf("fallback_reg %g must exceed reg %g", s.FallbackReg, s.Reg)
	}

	t := c.Training
	switch {
	case !(t.TestFraction > 0 && t.TestFraction < 1):
		return fmt.Errorf("test_fraction %g outside (0, 1)", t.TestFraction)
	case t.Folds < 2:
		return fmt.Errorf("folds must be at least 2, got %d", t.Folds)
	case t.Workers < 1:
		return fmt.Errorf("workers must be positive, got %d", t.Workers)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
