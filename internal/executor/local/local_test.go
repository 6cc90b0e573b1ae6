package local_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/tinkers/internal/executor"
	"github.com/sakif/tinkers/internal/executor/local"
	"github.com/sakif/tinkers/internal/interpreter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// shell is a throwaway language so the subprocess plumbing can be tested on
// any unix host, without php or node installed.
func shell() interpreter.Spec {
	return interpreter.Spec{
		ID:        "sh",
		Extension: ".sh",
		Command:   "sh",
		Args:      []string{interpreter.FilePlaceholder},
	}
}

func newBridge(t *testing.T, reg *interpreter.Registry) (*executor.Bridge, string) {
	t.Helper()
	dir := t.TempDir()
	b, err := executor.NewBridge(reg, local.New(testLogger()), testLogger(), executor.WithWorkDir(dir))
	require.NoError(t, err)
	return b, dir
}

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "artifacts left behind in %s", dir)
}

func TestRunner_Shell(t *testing.T) {
	requireBinary(t, "sh")
	b, dir := newBridge(t, interpreter.NewRegistry(shell()))

	t.Run("stdout and stderr are captured", func(t *testing.T) {
		res := b.Execute(context.Background(), executor.Request{
			Language: "sh",
			Code:     "printf 'out'; printf 'warn' >&2",
		})
		assert.True(t, res.Success, res.Message)
		assert.Equal(t, "out", res.Stdout)
		assert.Equal(t, "warn", res.Stderr)
		assert.Equal(t, 0, res.ExitCode)
		assertDirEmpty(t, dir)
	})

	t.Run("non-zero exit is a runtime failure", func(t *testing.T) {
		res := b.Execute(context.Background(), executor.Request{
			Language: "sh",
			Code:     "echo nope >&2; exit 3",
		})
		assert.False(t, res.Success)
		assert.Equal(t, executor.KindRuntime, res.Kind)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "nope\n", res.Stderr)
		assert.Contains(t, res.Message, "nope")
		assertDirEmpty(t, dir)
	})

	t.Run("timeout kills the process", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		res := b.Execute(ctx, executor.Request{Language: "sh", Code: "sleep 30"})

		assert.Less(t, time.Since(start), 10*time.Second)
		assert.False(t, res.Success)
		assert.Equal(t, executor.KindTimeout, res.Kind)
		assertDirEmpty(t, dir)
	})

	t.Run("runs inside the work dir", func(t *testing.T) {
		res := b.Execute(context.Background(), executor.Request{Language: "sh", Code: "pwd -P"})
		require.True(t, res.Success, res.Message)
		want, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		assert.Equal(t, want, strings.TrimSpace(res.Stdout))
	})
}

func TestRunner_MissingInterpreter(t *testing.T) {
	spec := shell()
	spec.ID = "ghost"
	spec.Command = "tinkers-no-such-interpreter"
	b, dir := newBridge(t, interpreter.NewRegistry(spec))

	res := b.Execute(context.Background(), executor.Request{Language: "ghost", Code: "anything"})

	assert.False(t, res.Success)
	assert.Equal(t, executor.KindSpawn, res.Kind)
	assert.Contains(t, res.Message, "tinkers-no-such-interpreter")
	assertDirEmpty(t, dir)
}

func TestRunner_RunReportsSpawnError(t *testing.T) {
	spec := shell()
	spec.Command = "tinkers-no-such-interpreter"

	_, err := local.New(testLogger()).Run(context.Background(), spec, "/nonexistent/x.sh")

	require.Error(t, err)
	assert.True(t, errors.Is(err, executor.ErrSpawn))
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}

func TestRunner_PHP(t *testing.T) {
	requireBinary(t, "php")
	b, dir := newBridge(t, interpreter.Default())

	res := b.Execute(context.Background(), executor.Request{Language: "php", Code: "echo 1+1;"})
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, "2", res.Stdout)
	assert.Empty(t, res.Stderr)

	res = b.Execute(context.Background(), executor.Request{
		Language: "php",
		Code:     "<?php\n\necho \"Hello, Tinkers!\";\n",
	})
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, "Hello, Tinkers!", res.Stdout)

	res = b.Execute(context.Background(), executor.Request{Language: "php", Code: "echo ;;("})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Stderr, "display_errors=stderr routes parse errors to stderr")

	assertDirEmpty(t, dir)
}

func TestRunner_JavaScript(t *testing.T) {
	requireBinary(t, "node")
	b, dir := newBridge(t, interpreter.Default())

	res := b.Execute(context.Background(), executor.Request{Language: "javascript", Code: "console.log(1)"})
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, "1\n", res.Stdout)

	res = b.Execute(context.Background(), executor.Request{Language: "javascript", Code: "throw new Error('x')"})
	assert.False(t, res.Success)
	assert.Equal(t, executor.KindRuntime, res.Kind)
	assert.Contains(t, res.Message, "x")
	assert.NotEmpty(t, res.Stderr)

	assertDirEmpty(t, dir)
}
