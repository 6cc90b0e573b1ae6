// Package docker runs interpreters inside pre-warmed Docker containers
// instead of directly on the host.
//
// The executor still materializes each snippet into its work dir; that dir is
// bind mounted read-only into every container at MountPoint, and the
// interpreter is exec'd there against the mapped artifact path.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/tinkers/internal/executor"
	"github.com/sakif/tinkers/internal/interpreter"
)

var _ executor.Runner = (*Runner)(nil)

// Runner implements executor.Runner using Docker.
type Runner struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pools  map[string]*Pool
}

// New connects to the Docker daemon, pulls the configured images and starts
// one container pool per language.
func New(cfg Config, logger *slog.Logger) (*Runner, error) {
	if cfg.WorkDir == "" {
		return nil, errors.New("docker: work dir is required")
	}
	workDir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("docker: resolving work dir: %w", err)
	}
	cfg.WorkDir = workDir

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: creating client: %w", err)
	}

	r := &Runner{
		cli:    cli,
		config: cfg,
		logger: logger,
		pools:  make(map[string]*Pool, len(cfg.Images)),
	}

	for lang, img := range cfg.Images {
		if err := r.pull(img); err != nil {
			r.Close()
			return nil, err
		}
		pool := NewPool(cli, img, cfg, logger)
		pool.Start()
		r.pools[lang] = pool
	}

	return r, nil
}

func (r *Runner) pull(img string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	r.logger.Info("ensuring docker image is available", slog.String("image", img))
	reader, err := r.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("docker: pulling %s: %w", img, err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("docker: pulling %s: %w", img, err)
	}
	return nil
}

// Close stops all pools and the docker client.
func (r *Runner) Close() error {
	for _, p := range r.pools {
		p.Stop()
	}
	return r.cli.Close()
}

// Run executes the interpreter for spec inside a pooled container.
func (r *Runner) Run(ctx context.Context, spec interpreter.Spec, artifact string) (*executor.Output, error) {
	pool, ok := r.pools[spec.ID]
	if !ok {
		return nil, fmt.Errorf("%w: no docker image configured for %s", executor.ErrSpawn, spec.ID)
	}

	argv, err := r.containerArgv(spec, artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", executor.ErrSpawn, err)
	}

	containerID, err := pool.GetContainer(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for container: %w", executor.ErrSpawn, err)
	}

	// Containers are single use: always remove the one we acquired. This
	// also kills the interpreter if ctx expired mid-run.
	defer pool.removeContainer(containerID)

	execResp, err := r.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   MountPoint,
		Cmd:          argv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating exec: %w", executor.ErrSpawn, err)
	}

	attachResp, err := r.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: attaching to exec: %w", executor.ErrSpawn, err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		// Docker multiplexes both streams over one connection.
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		attachResp.Close()
		<-done
		return &executor.Output{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}, nil
	}

	inspectResp, err := r.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("docker: inspecting exec: %w", err)
	}

	return &executor.Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspectResp.ExitCode,
	}, nil
}

// containerArgv maps the host artifact path into the container. The
// interpreter is invoked by its base name, since a configured host path
// means nothing inside the image.
func (r *Runner) containerArgv(spec interpreter.Spec, artifact string) ([]string, error) {
	rel, err := filepath.Rel(r.config.WorkDir, artifact)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("artifact %s is outside the mounted work dir", artifact)
	}

	spec.Command = filepath.Base(spec.Command)
	return spec.Argv(path.Join(MountPoint, filepath.ToSlash(rel))), nil
}
