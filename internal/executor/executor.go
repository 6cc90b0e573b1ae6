// Package executor runs untrusted snippets through an external interpreter
// and normalizes whatever happens into a Result.
//
// The pieces:
//
//	Request  → what the caller wants run (source + language id)
//	Bridge   → resolves the language, writes the source to a temp file,
//	           hands it to a Runner, and always deletes the file again
//	Runner   → actually starts the interpreter (local subprocess, docker)
//	Result   → success {stdout, stderr} or failure {message, stderr}
//
// Nothing that goes wrong while running a snippet is returned as a Go error:
// every failure becomes a Result with Success == false, so a bad snippet can
// never take the host process down with it.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/sakif/tinkers/internal/interpreter"
)

// ErrSpawn is wrapped by runners when the interpreter process could not be
// started at all (missing binary, permission denied, no container).
var ErrSpawn = errors.New("interpreter could not be started")

// Request is a single execution request.
type Request struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Kind classifies a failed execution.
type Kind string

const (
	KindUnsupportedLanguage Kind = "unsupported_language"
	KindArtifactIO          Kind = "artifact_io"
	KindSpawn               Kind = "spawn"
	KindRuntime             Kind = "runtime"
	KindTimeout             Kind = "timeout"
	KindInternal            Kind = "internal"
)

// Result is the normalized outcome of an execution.
//
// It is a tagged variant: when Success is true, Stdout and Stderr hold the
// interpreter's output (Stderr may be non-empty, e.g. PHP warnings); when it
// is false, Message explains the failure, Stderr carries whatever the
// interpreter wrote to its error stream and Kind says which stage failed.
// Output is never truncated here.
type Result struct {
	Success  bool          `json:"success"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Message  string        `json:"error,omitempty"`
	Kind     Kind          `json:"kind,omitempty"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// Succeeded builds a success result.
func Succeeded(stdout, stderr string) *Result {
	return &Result{Success: true, Stdout: stdout, Stderr: stderr}
}

// Failed builds a failure result. ExitCode is -1 until a caller that knows
// the real status sets it.
func Failed(kind Kind, message, stderr string) *Result {
	return &Result{Kind: kind, Message: message, Stderr: stderr, ExitCode: -1}
}

// Output is what a Runner captured from one interpreter process.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner starts the interpreter described by spec on the artifact file and
// waits for it to exit.
//
// A non-zero exit status is NOT an error: it is reported through
// Output.ExitCode. Run returns an error wrapping ErrSpawn when the process
// could not be launched, and any other error for failures of the runner
// itself. Runners must stop the process when ctx is done.
type Runner interface {
	Run(ctx context.Context, spec interpreter.Spec, artifact string) (*Output, error)
}

// Executor is what the gateway depends on. *Bridge implements it.
type Executor interface {
	Execute(ctx context.Context, req Request) *Result
}
