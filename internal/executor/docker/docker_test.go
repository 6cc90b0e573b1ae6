package docker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/tinkers/internal/executor"
	"github.com/sakif/tinkers/internal/interpreter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestContainerArgv(t *testing.T) {
	r := &Runner{config: Config{WorkDir: "/tmp/tinkers-abc"}}

	t.Run("maps artifact into the mount", func(t *testing.T) {
		argv, err := r.containerArgv(interpreter.PHP(), "/tmp/tinkers-abc/tinkers_1.php")
		require.NoError(t, err)
		assert.Equal(t, []string{"php", "-d", "display_errors=stderr", "/work/tinkers_1.php"}, argv)
	})

	t.Run("host interpreter path is reduced to its name", func(t *testing.T) {
		spec := interpreter.JavaScript()
		spec.Command = "/opt/homebrew/bin/node"
		argv, err := r.containerArgv(spec, "/tmp/tinkers-abc/a.js")
		require.NoError(t, err)
		assert.Equal(t, []string{"node", "/work/a.js"}, argv)
	})

	t.Run("artifact outside the work dir is rejected", func(t *testing.T) {
		_, err := r.containerArgv(interpreter.PHP(), "/etc/passwd")
		assert.Error(t, err)
	})
}

func TestRun_UnknownLanguageIsSpawnError(t *testing.T) {
	r := &Runner{config: Config{WorkDir: "/tmp"}, logger: testLogger(), pools: map[string]*Pool{}}

	_, err := r.Run(context.Background(), interpreter.PHP(), "/tmp/x.php")

	require.Error(t, err)
	assert.True(t, errors.Is(err, executor.ErrSpawn))
}

func TestDockerRunner(t *testing.T) {
	// Skip in CI environments if docker is not available
	if os.Getenv("CI") != "" || testing.Short() {
		t.Skip("Skipping docker test in CI environment")
	}

	workDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.WorkDir = workDir

	runner, err := New(cfg, testLogger())
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	defer runner.Close()

	bridge, err := executor.NewBridge(interpreter.Default(), runner, testLogger(), executor.WithWorkDir(workDir))
	require.NoError(t, err)

	t.Run("php", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		res := bridge.Execute(ctx, executor.Request{Language: "php", Code: "echo 1+1;"})
		assert.True(t, res.Success, res.Message)
		assert.Equal(t, "2", res.Stdout)
	})

	t.Run("javascript error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		res := bridge.Execute(ctx, executor.Request{Language: "javascript", Code: "throw new Error('x')"})
		assert.False(t, res.Success)
		assert.Equal(t, executor.KindRuntime, res.Kind)
		assert.NotEmpty(t, res.Stderr)
	})

	t.Run("infinite loop timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		res := bridge.Execute(ctx, executor.Request{Language: "javascript", Code: "while (true) {}"})
		assert.False(t, res.Success)
		assert.Equal(t, executor.KindTimeout, res.Kind)
	})

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "artifacts left in %s", filepath.Base(workDir))
}
