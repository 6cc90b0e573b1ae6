package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/tinkers/internal/config"
	"github.com/sakif/tinkers/internal/executor"
	"github.com/sakif/tinkers/internal/executor/docker"
	"github.com/sakif/tinkers/internal/executor/local"
	"github.com/sakif/tinkers/internal/interpreter"
	sqliteRepo "github.com/sakif/tinkers/internal/repository/sqlite"
	"github.com/sakif/tinkers/internal/service"
)

// newLogger builds the process logger. Logs go to stderr so they never mix
// with snippet output on stdout.
func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.Log.SlogLevel() // validated by config.Load
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newLanguages returns the language table with configured interpreter
// binaries swapped in.
func newLanguages(cfg config.Config) *interpreter.Registry {
	languages := interpreter.Default()
	for id, bin := range cfg.Execution.Interpreters {
		languages = languages.WithCommand(id, bin)
	}
	return languages
}

// newBridge assembles the execution stack for the configured runner. The
// returned cleanup stops containers and removes the work dir.
func newBridge(cfg config.Config, languages *interpreter.Registry, logger *slog.Logger) (*executor.Bridge, func(), error) {
	switch cfg.Execution.Runner {
	case config.RunnerDocker:
		return newDockerBridge(cfg, languages, logger)
	default:
		var opts []executor.Option
		if cfg.Execution.WorkDir != "" {
			opts = append(opts, executor.WithWorkDir(cfg.Execution.WorkDir))
		}
		bridge, err := executor.NewBridge(languages, local.New(logger), logger, opts...)
		if err != nil {
			return nil, nil, err
		}
		return bridge, func() { closeLogged(logger, "executor", bridge.Close) }, nil
	}
}

// newDockerBridge shares one host directory between the Bridge, which writes
// artifacts into it, and the containers, which see it at /work.
func newDockerBridge(cfg config.Config, languages *interpreter.Registry, logger *slog.Logger) (*executor.Bridge, func(), error) {
	workDir := cfg.Execution.WorkDir
	ownsDir := workDir == ""
	if ownsDir {
		dir, err := os.MkdirTemp("", "tinkers-")
		if err != nil {
			return nil, nil, fmt.Errorf("creating work dir: %w", err)
		}
		workDir = dir
	}
	removeDir := func() {
		if ownsDir {
			os.RemoveAll(workDir)
		}
	}

	dcfg := docker.DefaultConfig()
	dcfg.WorkDir = workDir
	for id, image := range cfg.Execution.Docker.Images {
		dcfg.Images[id] = image
	}
	dcfg.MemoryLimit = cfg.Execution.Docker.MemoryMB * 1024 * 1024
	dcfg.CPULimit = cfg.Execution.Docker.CPUs
	dcfg.PoolSize = cfg.Execution.Docker.PoolSize

	runner, err := docker.New(dcfg, logger)
	if err != nil {
		removeDir()
		return nil, nil, err
	}

	bridge, err := executor.NewBridge(languages, runner, logger, executor.WithWorkDir(workDir))
	if err != nil {
		runner.Close()
		removeDir()
		return nil, nil, err
	}

	cleanup := func() {
		closeLogged(logger, "docker runner", runner.Close)
		closeLogged(logger, "executor", bridge.Close)
		removeDir()
	}
	return bridge, cleanup, nil
}

// openStore opens the SQLite database and loads the snippet collection.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*service.SnippetStore, func(), error) {
	if cfg.Storage.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.Storage.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	store, err := service.NewSnippetStore(ctx, db, cfg.Storage.Namespace, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { closeLogged(logger, "database", db.Close) }, nil
}

func closeLogged(logger *slog.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to close "+what, slog.String("error", err.Error()))
	}
}
