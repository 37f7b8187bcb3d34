package config

import (
	"testing"
	"time"

	"pdlens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PDLENS_TOP_K", "PDLENS_SEED", "PDLENS_OUTPUT_DIR", "DATABASE_URL", "PORT", "GIN_MODE"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Analysis, cfg.Analysis)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PDLENS_TOP_K", "15")
	t.Setenv("PDLENS_SEED", "7")
	t.Setenv("PDLENS_TEST_FRACTION", "0.3")
	t.Setenv("PDLENS_RANK_ALL_METHODS", "true")
	t.Setenv("PDLENS_TIMEOUT", "90s")
	t.Setenv("PDLENS_OUTPUT_DIR", "/tmp/out")
	t.Setenv("DATABASE_URL", "postgres://localhost/pdlens")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Analysis.TopK)
	assert.Equal(t, int64(7), cfg.Analysis.Seed)
	assert.Equal(t, 0.3, cfg.Analysis.TestFraction)
	assert.True(t, cfg.Analysis.RankAllMethods)
	assert.Equal(t, 90*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.True(t, cfg.Database.Enabled())
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("PDLENS_TREES", "many")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Analysis.Trees)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"PDLENS_TOP_K":         "0",
		"PDLENS_MI_BINS":       "1",
		"PDLENS_WORKERS":       "-2",
		"PDLENS_TEST_FRACTION": "1.5",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
