package config

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "results", cfg.ResultsDir)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crowdtest.yaml")
	content := `
addr: ":9090"
results_dir: /srv/crowdtest/results
static_dir: /srv/crowdtest
shutdown_timeout: 3s
log:
  level: debug
  gelf_addr: 127.0.0.1:12201
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "/srv/crowdtest/results", cfg.ResultsDir)
	assert.Equal(t, "/srv/crowdtest", cfg.StaticDir)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:12201", cfg.Log.GelfAddr)
	// untouched keys keep their defaults
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("env wins over file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "crowdtest.yaml")
		require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o644))
		t.Setenv("CROWDTEST_ADDR", ":7070")
		t.Setenv("CROWDTEST_RESULTS_DIR", "/tmp/r")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.HTTPAddr)
		assert.Equal(t, "/tmp/r", cfg.ResultsDir)
	})

	t.Run("numeric override", func(t *testing.T) {
		t.Setenv("CROWDTEST_MAX_BODY_BYTES", "2048")

		cfg := Default()
		cfg.applyEnvOverrides()
		assert.Equal(t, int64(2048), cfg.MaxBodyBytes)
	})

	t.Run("non-numeric value is ignored", func(t *testing.T) {
		t.Setenv("CROWDTEST_MAX_BODY_BYTES", "12k")

		cfg := Default()
		cfg.applyEnvOverrides()
		assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	})

	t.Run("empty value keeps fallback", func(t *testing.T) {
		t.Setenv("CROWDTEST_LOG_LEVEL", "")

		cfg := Default()
		cfg.applyEnvOverrides()
		assert.Equal(t, "info", cfg.Log.Level)
	})
}

func TestLoad_NonPositiveBodyLimit(t *testing.T) {
	t.Run("yaml zero", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "crowdtest.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_body_bytes: 0\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	})

	t.Run("yaml negative", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "crowdtest.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_body_bytes: -5\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	})

	t.Run("env zero", func(t *testing.T) {
		t.Setenv("CROWDTEST_MAX_BODY_BYTES", "0")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	})
}

func TestGetEnvInt_Overflow(t *testing.T) {
	t.Setenv("CROWDTEST_TEST_INT", "99999999999999999999999")
	assert.Equal(t, 42, getEnvInt("CROWDTEST_TEST_INT", 42))

	t.Setenv("CROWDTEST_TEST_INT", strconv.Itoa(math.MaxInt))
	assert.Equal(t, math.MaxInt, getEnvInt("CROWDTEST_TEST_INT", 42))
}
