package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "SIGNER_CONFIG"
	EnvAllowInsecure  = "SIGNER_ALLOW_INSECURE_MEMORY"
	EnvRequireLock    = "SIGNER_REQUIRE_MEMORY_LOCK"
	EnvLogLevel       = "SIGNER_LOG_LEVEL"
	defaultConfigPath = "configs/signer.yaml"
)

type Config struct {
	// RequireMemoryLock refuses to run when secret memory cannot be locked.
	RequireMemoryLock bool
	// AllowInsecureMemory wins over RequireMemoryLock.
	AllowInsecureMemory bool
	LogLevel            slog.Level
}

type FileConfig struct {
	Memory FileMemoryConfig `yaml:"memory"`
	Log    FileLogConfig    `yaml:"log"`
}

type FileMemoryConfig struct {
	RequireLock   *bool `yaml:"requireLock"`
	AllowInsecure *bool `yaml:"allowInsecure"`
}

type FileLogConfig struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{LogLevel: slog.LevelWarn}
}

// RequireLock reports the effective locking policy.
func (c Config) RequireLock() bool {
	return c.RequireMemoryLock && !c.AllowInsecureMemory
}

// Load reads the file named by SIGNER_CONFIG, or the default path, and
// applies env overrides. A missing or unreadable file leaves defaults.
func Load() Config {
	return LoadFromPath(strings.TrimSpace(os.Getenv(EnvConfigPath)))
}

func LoadFromPath(configPath string) Config {
	cfg := Default()
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if data, err := os.ReadFile(configPath); err == nil {
		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err == nil {
			Merge(&cfg, parsed)
		}
	}
	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src FileConfig) {
	if src.Memory.RequireLock != nil {
		dst.RequireMemoryLock = *src.Memory.RequireLock
	}
	if src.Memory.AllowInsecure != nil {
		dst.AllowInsecureMemory = *src.Memory.AllowInsecure
	}
	if level, ok := parseLevel(src.Log.Level); ok {
		dst.LogLevel = level
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v, ok := envBool(EnvRequireLock); ok {
		cfg.RequireMemoryLock = v
	}
	if v, ok := envBool(EnvAllowInsecure); ok {
		cfg.AllowInsecureMemory = v
	}
	if level, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.LogLevel = level
	}
}

func envBool(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func parseLevel(raw string) (slog.Level, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, false
	}
	return level, true
}
