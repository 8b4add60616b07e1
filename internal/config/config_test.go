package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(f)
	args = append([]string{"--env-file", filepath.Join(t.TempDir(), "absent.env")}, args...)
	require.NoError(t, f.Parse(args))
	return Load(f)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "knolstudy.db", cfg.DB.Path)
	assert.Equal(t, "repos", cfg.Repos.Dir)
	assert.Empty(t, cfg.Import.Root)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.Quiz.SessionSize)
	assert.Equal(t, 10, cfg.Flashcards.ReviewLimit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestPrecedence(t *testing.T) {
	path := writeFile(t, "config.yaml", `
http:
  addr: ":9000"
quiz:
  session_size: 7
redis:
  addr: "cache:6379"
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := load(t, "--config", path)
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.HTTP.Addr)
		assert.Equal(t, 7, cfg.Quiz.SessionSize)
		assert.Equal(t, "cache:6379", cfg.Redis.Addr)
		assert.Equal(t, "data", cfg.Data.Dir)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("KNOLSTUDY_HTTP__ADDR", ":9100")
		t.Setenv("KNOLSTUDY_QUIZ__SESSION_SIZE", "3")
		cfg, err := load(t, "--config", path)
		require.NoError(t, err)
		assert.Equal(t, ":9100", cfg.HTTP.Addr)
		assert.Equal(t, 3, cfg.Quiz.SessionSize)
		assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("KNOLSTUDY_HTTP__ADDR", ":9100")
		cfg, err := load(t, "--config", path, "--http.addr", ":9200")
		require.NoError(t, err)
		assert.Equal(t, ":9200", cfg.HTTP.Addr)
		assert.Equal(t, 7, cfg.Quiz.SessionSize)
	})
}

func TestImportRoot(t *testing.T) {
	t.Setenv("KNOLSTUDY_IMPORT__ROOT", "/srv/notes")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, "/srv/notes", cfg.Import.Root)
}

func TestDotEnvFile(t *testing.T) {
	const key = "KNOLSTUDY_LOG__LEVEL"
	t.Cleanup(func() { os.Unsetenv(key) })
	envFile := writeFile(t, "test.env", key+"=debug\n")

	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(f)
	require.NoError(t, f.Parse([]string{"--env-file", envFile}))

	cfg, err := Load(f)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInvalidConfig(t *testing.T) {
	_, err := load(t, "--log.format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")

	_, err = load(t, "--quiz.session_size", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_size")

	_, err = load(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	cfg, err := load(t, "--log.format", "json", "--log.level", "warn")
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"key":"value"`)
}
