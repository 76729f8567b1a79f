package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.Generation.Seed)
	assert.Equal(t, 200, cfg.Generation.Leads)
	assert.Equal(t, 6, cfg.Generation.MaxAttempts)
	assert.InDelta(t, 0.92, cfg.Generation.PConsent, 1e-9)
	assert.Equal(t, "data", cfg.Output.Dir)
	assert.Equal(t, []string{"csv"}, cfg.Output.Formats)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "dnc:phone_hashes", cfg.Redis.Key)
}

func TestLoad_Layering(t *testing.T) {
	path := writeFile(t, "config.yaml", `
log_level: debug
generation:
  seed: 7
  leads: 50
  anchor: "2024-03-15T12:00:00Z"
output:
  dir: out
  formats: [csv, parquet]
`)
	t.Setenv("SYNTH_GENERATION__LEADS", "75")
	t.Setenv("SYNTH_OUTPUT__PARQUET_COMPRESSION", "zstd")

	cfg, err := Load(LoadOptions{
		ConfigFile: path,
		Overrides:  map[string]interface{}{"generation.seed": uint64(9)},
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(9), cfg.Generation.Seed, "overrides win")
	assert.Equal(t, 75, cfg.Generation.Leads, "environment beats file")
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, []string{"csv", "parquet"}, cfg.Output.Formats)
	assert.Equal(t, "zstd", cfg.Output.ParquetCompression)
	assert.Equal(t, 6, cfg.Generation.MaxAttempts, "untouched keys keep defaults")
}

func TestLoad_EnvFile(t *testing.T) {
	const key = "SYNTH_GENERATION__MAX_ATTEMPTS"
	t.Cleanup(func() { os.Unsetenv(key) })
	path := writeFile(t, "test.env", key+"=3\n")

	cfg, err := Load(LoadOptions{EnvFile: path})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Generation.MaxAttempts)
}

func TestLoad_MissingExplicitFiles(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	_, err = Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), "nope.env")})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestValidate_ReportsEveryField(t *testing.T) {
	cfg := Defaults()
	cfg.Generation.Leads = -1
	cfg.Generation.PConsent = 1.5
	cfg.Generation.RevenueMax = 10
	cfg.Output.Formats = []string{"csv", "json"}
	cfg.Archive.Enabled = true
	cfg.Generation.Anchor = "yesterday"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Equal(t, errors.StageConfig, errors.StageOf(err))

	msg := err.Error()
	assert.Contains(t, msg, "generation.leads must be >= 0")
	assert.Contains(t, msg, "generation.p_consent must be <= 1")
	assert.Contains(t, msg, "generation.revenue_max must be >= revenue_min")
	assert.Contains(t, msg, "output.formats[1] must be one of: csv parquet xlsx")
	assert.Contains(t, msg, "archive.bucket is required")
	assert.Contains(t, msg, "generation.anchor must be an RFC3339 timestamp")
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("SYNTH_GENERATION__P_VIOLATION", "2")
	_, err := Load(LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation.p_violation")
}

func TestGenerationConfig_Params(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 30, 15, 999, time.UTC)

	t.Run("defaults to now truncated", func(t *testing.T) {
		p, err := Defaults().Generation.Params(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 5, 1, 8, 30, 15, 0, time.UTC), p.Anchor)
		assert.Equal(t, 200, p.Leads)
		assert.Equal(t, 0.07, p.FDNC)
	})

	t.Run("explicit anchor normalized to UTC", func(t *testing.T) {
		g := Defaults().Generation
		g.Anchor = "2024-03-15T07:00:00-05:00"
		p, err := g.Params(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), p.Anchor)
	})

	t.Run("bad anchor", func(t *testing.T) {
		g := Defaults().Generation
		g.Anchor = "15/03/2024"
		_, err := g.Params(now)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	})
}

func TestOutputConfig_ExportFormats(t *testing.T) {
	formats, err := OutputConfig{Formats: []string{"csv", ".xlsx"}}.ExportFormats()
	require.NoError(t, err)
	assert.Equal(t, []values.ExportFormat{values.CSVFormat(), values.ExcelFormat()}, formats)

	_, err = OutputConfig{Formats: []string{"json"}}.ExportFormats()
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "generation.p_consent", envKey("SYNTH_GENERATION__P_CONSENT"))
	assert.Equal(t, "log_level", envKey("SYNTH_LOG_LEVEL"))
}
