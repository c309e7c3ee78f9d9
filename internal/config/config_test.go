package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.CSP.Components)
	assert.Equal(t, 0.1, cfg.CSP.Reg)
	assert.Equal(t, 1.0, cfg.CSP.FallbackReg)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, 5, cfg.Training.Folds)
	assert.Equal(t, 0.3, cfg.Training.TestFraction)
	assert.Equal(t, 250.0, cfg.Preprocess.SampleRate)
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bci.yaml")
	yml := "subject: 3\ncsp:\n  components: 2\ntraining:\n  folds: 3\nlabel_names: [a, b]\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Subject)
	assert.Equal(t, 2, cfg.CSP.Components)
	assert.Equal(t, 0.1, cfg.CSP.Reg)
	assert.Equal(t, 3, cfg.Training.Folds)
	assert.Equal(t, []string{"a", "b"}, cfg.LabelNames)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BCI_DATA_DIR", "/tmp/eeg")
	t.Setenv("BCI_SUBJECT", "7")
	t.Setenv("BCI_WORKERS", "not-a-number")
	t.Setenv("BCI_HISTORY_DB", "runs.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/eeg", cfg.DataDir)
	assert.Equal(t, 7, cfg.Subject)
	assert.Equal(t, "runs.db", cfg.HistoryDB)
	assert.Equal(t, Default().Training.Workers, cfg.Training.Workers)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("csp: [\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("csp:\n  reg: 1.0\n"), 0644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "fallback_reg")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"subject", func(c *Config) { c.Subject = 0 }},
		{"sample rate", func(c *Config) { c.Preprocess.SampleRate = 0 }},
		{"order", func(c *Config) { c.Preprocess.Order = 0 }},
		{"band above nyquist", func(c *Config) { c.Preprocess.HighHz = 200 }},
		{"inverted band", func(c *Config) { c.Preprocess.LowHz = 40 }},
		{"components", func(c *Config) { c.CSP.Components = 0 }},
		{"reg range", func(c *Config) { c.CSP.Reg = -0.1 }},
		{"test fraction", func(c *Config) { c.Training.TestFraction = 1 }},
		{"folds", func(c *Config) { c.Training.Folds = 1 }},
		{"workers", func(c *Config) { c.Training.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Subject = 9
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Subject)
	assert.Equal(t, cfg.CSP, loaded.CSP)
}
