package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr        string        `yaml:"addr"`
	ResultsDir      string        `yaml:"results_dir"`
	StaticDir       string        `yaml:"static_dir"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Log             LogConfig     `yaml:"log"`
}

// LogConfig configures the zap logger and the optional GELF sink.
type LogConfig struct {
	Level    string `yaml:"level"` // debug, info, warn, error
	GelfAddr string `yaml:"gelf_addr"`
}

func Default() *Config {
	return &Config{
		HTTPAddr:        ":8080",
		ResultsDir:      "results",
		MaxBodyBytes:    10 << 20,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Log:             LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// non-empty) and then CROWDTEST_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = Default().MaxBodyBytes
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.HTTPAddr = getEnv("CROWDTEST_ADDR", c.HTTPAddr)
	c.ResultsDir = getEnv("CROWDTEST_RESULTS_DIR", c.ResultsDir)
	c.StaticDir = getEnv("CROWDTEST_STATIC_DIR", c.StaticDir)
	c.MaxBodyBytes = int64(getEnvInt("CROWDTEST_MAX_BODY_BYTES", int(c.MaxBodyBytes)))
	c.Log.Level = getEnv("CROWDTEST_LOG_LEVEL", c.Log.Level)
	c.Log.GelfAddr = getEnv("CROWDTEST_GELF_ADDR", c.Log.GelfAddr)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return fallback
		}
		d := int(c - '0')
		if n > (math.MaxInt-d)/10 {
			return fallback
		}
		n = n*10 + d
	}
	return n
}
