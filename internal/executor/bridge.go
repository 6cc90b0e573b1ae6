package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/tinkers/internal/interpreter"
)

var _ Executor = (*Bridge)(nil)

// Bridge is the execution boundary: validate → materialize → run → clean up.
//
// Every call writes its source to a uniquely named file inside the Bridge's
// private work directory, so concurrent calls never step on each other's
// artifacts.
type Bridge struct {
	languages *interpreter.Registry
	runner    Runner
	logger    *slog.Logger
	workDir   string
	ownsDir   bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithWorkDir makes the Bridge write artifacts into dir instead of a fresh
// temporary directory. The directory is created if needed and is not removed
// by Close. The docker runner needs this because it mounts the same dir.
func WithWorkDir(dir string) Option {
	return func(b *Bridge) {
		b.workDir = dir
	}
}

// NewBridge creates a Bridge. Without WithWorkDir it creates (and owns) a
// private directory under os.TempDir.
func NewBridge(languages *interpreter.Registry, runner Runner, logger *slog.Logger, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		languages: languages,
		runner:    runner,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.workDir == "" {
		dir, err := os.MkdirTemp("", "tinkers-")
		if err != nil {
			return nil, fmt.Errorf("executor: creating work dir: %w", err)
		}
		b.workDir = dir
		b.ownsDir = true
	} else if err := os.MkdirAll(b.workDir, 0o700); err != nil {
		return nil, fmt.Errorf("executor: creating work dir %s: %w", b.workDir, err)
	}

	return b, nil
}

// WorkDir is where artifacts are materialized.
func (b *Bridge) WorkDir() string {
	return b.workDir
}

// Close removes the work directory if the Bridge created it.
func (b *Bridge) Close() error {
	if !b.ownsDir {
		return nil
	}
	if err := os.RemoveAll(b.workDir); err != nil {
		return fmt.Errorf("executor: removing work dir: %w", err)
	}
	return nil
}

// Execute runs req and returns its normalized outcome. It never panics and
// never returns nil. The artifact written for the run is deleted before
// Execute returns, whatever the outcome.
func (b *Bridge) Execute(ctx context.Context, req Request) (res *Result) {
	start := time.Now()
	runID := uuid.NewString()
	logger := b.logger.With(
		slog.String("run", runID),
		slog.String("language", req.Language),
	)

	// Unknown languages are rejected before anything touches the filesystem.
	spec, err := b.languages.Resolve(req.Language)
	if err != nil {
		logger.Warn("rejected execution request", slog.String("error", err.Error()))
		return Failed(KindUnsupportedLanguage, err.Error(), "")
	}

	defer func() {
		res.Duration = time.Since(start)
		logger.Info("execution finished",
			slog.Bool("success", res.Success),
			slog.String("kind", string(res.Kind)),
			slog.Int("exitCode", res.ExitCode),
			slog.Duration("duration", res.Duration),
		)
	}()

	path, err := b.materialize(runID, spec, req.Code)
	if err != nil {
		logger.Error("failed to write artifact", slog.String("error", err.Error()))
		return Failed(KindArtifactIO, fmt.Sprintf("writing source file: %v", err), "")
	}

	// SCOPED CLEANUP: registered right after the artifact exists, so it runs
	// on the success path, on every failure path, and after a recovered panic.
	defer func() {
		err := os.Remove(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return
		}
		logger.Error("failed to remove artifact",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		// A failed run keeps its original diagnostic.
		if res.Success {
			stderr := res.Stderr
			res = Failed(KindArtifactIO, fmt.Sprintf("removing source file: %v", err), stderr)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("runner panicked", slog.Any("panic", r))
			res = Failed(KindInternal, fmt.Sprintf("execution failed: %v", r), "")
		}
	}()

	logger.Debug("running interpreter", slog.String("command", spec.Command), slog.String("artifact", path))
	out, err := b.runner.Run(ctx, spec, path)
	return outcome(ctx, spec, out, err)
}

// materialize writes the wrapped source to a new file in the work dir.
// O_EXCL guarantees we never reuse (or clobber) an existing artifact.
func (b *Bridge) materialize(runID string, spec interpreter.Spec, code string) (string, error) {
	path := filepath.Join(b.workDir, "tinkers_"+runID+spec.Extension)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(spec.Wrap(code)); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// outcome maps what the runner reported onto a Result.
func outcome(ctx context.Context, spec interpreter.Spec, out *Output, err error) *Result {
	if err == nil && out != nil && out.ExitCode == 0 {
		return Succeeded(out.Stdout, out.Stderr)
	}

	var stderr string
	if out != nil {
		stderr = out.Stderr
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		msg := "execution canceled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			msg = "execution timed out"
		}
		return Failed(KindTimeout, msg, stderr)
	}

	if err != nil {
		if errors.Is(err, ErrSpawn) {
			return Failed(KindSpawn, err.Error(), stderr)
		}
		return Failed(KindRuntime, err.Error(), stderr)
	}

	if out == nil {
		return Failed(KindInternal, "runner returned no output", "")
	}

	res := Failed(KindRuntime, runtimeMessage(spec, out), out.Stderr)
	res.ExitCode = out.ExitCode
	return res
}

// runtimeMessage describes a non-zero exit. The interpreter's own diagnostic
// comes from stderr, falling back to stdout (where some interpreters print
// their errors).
func runtimeMessage(spec interpreter.Spec, out *Output) string {
	msg := fmt.Sprintf("%s exited with status %d", spec.Command, out.ExitCode)
	diag := strings.TrimSpace(out.Stderr)
	if diag == "" {
		diag = strings.TrimSpace(out.Stdout)
	}
	if diag != "" {
		msg += ": " + diag
	}
	return msg
}
