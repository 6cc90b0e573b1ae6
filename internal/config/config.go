// Package config loads runtime settings for the tinkers binary.
//
// Settings come from three layers, later ones winning:
//
//	defaults → optional TOML file (--config) → environment variables
//
// Only keys actually present in the file override a default, so a file that
// sets just `[execution] timeout = "5s"` leaves everything else alone.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Runner names accepted by execution.runner.
const (
	RunnerLocal  = "local"
	RunnerDocker = "docker"
)

// Config is the fully resolved configuration.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Execution ExecutionConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// Addr is the listen address for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	DBPath    string
	Namespace string
}

type ExecutionConfig struct {
	Runner  string
	Timeout time.Duration
	// WorkDir holds the temporary source files. Empty means a fresh
	// directory under os.TempDir for every process.
	WorkDir string
	// Interpreters overrides the binary used per language id.
	Interpreters map[string]string
	Docker       DockerConfig
}

type DockerConfig struct {
	Images   map[string]string
	MemoryMB int64
	CPUs     float64
	PoolSize int
}

type LogConfig struct {
	Level string
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid log level %q", l.Level)
	}
	return level, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Storage: StorageConfig{
			DBPath:    defaultDBPath(),
			Namespace: "tinkers-snippets",
		},
		Execution: ExecutionConfig{
			Runner:       RunnerLocal,
			Timeout:      30 * time.Second,
			Interpreters: map[string]string{},
			Docker: DockerConfig{
				Images:   map[string]string{},
				MemoryMB: 128,
				CPUs:     0.5,
				PoolSize: 1,
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join("data", "tinkers.db")
	}
	return filepath.Join(dir, "tinkers", "tinkers.db")
}

// fileConfig mirrors the TOML layout.
type fileConfig struct {
	Server struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
	} `toml:"server"`
	Storage struct {
		DBPath    string `toml:"db_path"`
		Namespace string `toml:"namespace"`
	} `toml:"storage"`
	Execution struct {
		Runner       string            `toml:"runner"`
		Timeout      string            `toml:"timeout"`
		WorkDir      string            `toml:"work_dir"`
		Interpreters map[string]string `toml:"interpreters"`
		Docker       struct {
			Images   map[string]string `toml:"images"`
			MemoryMB int64             `toml:"memory_mb"`
			CPUs     float64           `toml:"cpus"`
			PoolSize int               `toml:"pool_size"`
		} `toml:"docker"`
	} `toml:"execution"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Load resolves the configuration. path may be empty to skip the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
	}

	if meta.IsDefined("server", "host") {
		c.Server.Host = strings.TrimSpace(raw.Server.Host)
	}
	if meta.IsDefined("server", "port") {
		c.Server.Port = raw.Server.Port
	}

	if meta.IsDefined("storage", "db_path") {
		c.Storage.DBPath = strings.TrimSpace(raw.Storage.DBPath)
	}
	if meta.IsDefined("storage", "namespace") {
		c.Storage.Namespace = strings.TrimSpace(raw.Storage.Namespace)
	}

	if meta.IsDefined("execution", "runner") {
		c.Execution.Runner = strings.TrimSpace(raw.Execution.Runner)
	}
	if meta.IsDefined("execution", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Execution.Timeout))
		if err != nil {
			return fmt.Errorf("config: parse execution.timeout: %w", err)
		}
		c.Execution.Timeout = d
	}
	if meta.IsDefined("execution", "work_dir") {
		c.Execution.WorkDir = strings.TrimSpace(raw.Execution.WorkDir)
	}
	for lang, bin := range raw.Execution.Interpreters {
		if bin = strings.TrimSpace(bin); bin != "" {
			c.Execution.Interpreters[lang] = bin
		}
	}

	for lang, image := range raw.Execution.Docker.Images {
		if image = strings.TrimSpace(image); image != "" {
			c.Execution.Docker.Images[lang] = image
		}
	}
	if meta.IsDefined("execution", "docker", "memory_mb") {
		c.Execution.Docker.MemoryMB = raw.Execution.Docker.MemoryMB
	}
	if meta.IsDefined("execution", "docker", "cpus") {
		c.Execution.Docker.CPUs = raw.Execution.Docker.CPUs
	}
	if meta.IsDefined("execution", "docker", "pool_size") {
		c.Execution.Docker.PoolSize = raw.Execution.Docker.PoolSize
	}

	if meta.IsDefined("log", "level") {
		c.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	return nil
}

// applyEnv reads PORT, HOST, DB_PATH, EXEC_RUNNER, EXEC_TIMEOUT and LOG_LEVEL.
func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q", v)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("EXEC_RUNNER"); v != "" {
		c.Execution.Runner = v
	}
	if v := os.Getenv("EXEC_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid EXEC_TIMEOUT %q: %w", v, err)
		}
		c.Execution.Timeout = d
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("config: storage.db_path is required")
	}
	if c.Storage.Namespace == "" {
		return fmt.Errorf("config: storage.namespace is required")
	}
	switch c.Execution.Runner {
	case RunnerLocal, RunnerDocker:
	default:
		return fmt.Errorf("config: execution.runner must be %q or %q, got %q", RunnerLocal, RunnerDocker, c.Execution.Runner)
	}
	if c.Execution.Timeout <= 0 {
		return fmt.Errorf("config: execution.timeout must be positive")
	}
	if c.Execution.Runner == RunnerDocker && c.Execution.Docker.PoolSize < 1 {
		return fmt.Errorf("config: execution.docker.pool_size must be at least 1")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}
