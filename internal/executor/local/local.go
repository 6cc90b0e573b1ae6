// Package local runs interpreters as plain subprocesses of the host.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sakif/tinkers/internal/executor"
	"github.com/sakif/tinkers/internal/interpreter"
)

var _ executor.Runner = (*Runner)(nil)

// DefaultWaitDelay bounds how long Run waits for the output pipes after the
// interpreter was killed. A snippet that forks a background child would
// otherwise keep the pipes open and hang the call.
const DefaultWaitDelay = 2 * time.Second

// Runner implements executor.Runner with os/exec.
type Runner struct {
	logger    *slog.Logger
	waitDelay time.Duration
}

// New creates a local Runner.
func New(logger *slog.Logger) *Runner {
	return &Runner{
		logger:    logger,
		waitDelay: DefaultWaitDelay,
	}
}

// Run starts spec's interpreter on artifact and waits for it. The process is
// killed when ctx is done.
func (r *Runner) Run(ctx context.Context, spec interpreter.Spec, artifact string) (*executor.Output, error) {
	argv := spec.Argv(artifact)

	// Resolve up front so a missing interpreter is reported by name.
	program, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", executor.ErrSpawn, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, program, argv[1:]...)
	cmd.Dir = filepath.Dir(artifact)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.waitDelay

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", executor.ErrSpawn, program, err)
	}
	r.logger.Debug("interpreter started",
		slog.String("program", program),
		slog.Int("pid", cmd.Process.Pid),
	)

	waitErr := cmd.Wait()
	out := &executor.Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	if waitErr != nil {
		// Non-zero exit (or killed by a signal): the status is the answer.
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return out, nil
		}
		return out, fmt.Errorf("waiting for %s: %w", program, waitErr)
	}

	return out, nil
}
