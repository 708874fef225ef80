// Package runner provides bounded subprocess execution: a wall-clock
// timeout and a per-stream output size cap on every run.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// Runner executes commands under the configured bounds. It holds no
// mutable state across calls; concurrent Runs are independent.
type Runner struct {
	Timeout   time.Duration // default per-run bound
	MaxOutput int           // per-stream cap in bytes
	Logger    *slog.Logger
}

// Options adjusts a single Run.
type Options struct {
	Dir     string        // working directory for the child; empty inherits
	Env     []string      // KEY=VALUE entries appended to the inherited env
	Timeout time.Duration // overrides Runner.Timeout when > 0
}

// Run executes argv[0] with argv[1:] as arguments. A nonzero exit code
// is a successful outcome; only spawn failure and timeout are errors,
// reported as *SpawnError and *TimeoutError respectively.
func (r *Runner) Run(ctx context.Context, argv []string, opts Options) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	timeout := r.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	maxOutput := r.MaxOutput

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runID := uuid.New().String()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		// The child was killed by CommandContext; a timed-out run never
		// yields a partial result.
		r.logf("run timed out", "run_id", runID, "argv0", argv[0], "timeout", timeout)
		return nil, &TimeoutError{Binary: argv[0], Timeout: timeout}
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// Killed-by-signal reports -1 here, a deliberate non-zero
			// sentinel rather than a missing code.
			exitCode = exitErr.ExitCode()
		} else {
			return nil, &SpawnError{Binary: argv[0], Err: runErr}
		}
	}

	truncated := stdout.Len() >= maxOutput || stderr.Len() >= maxOutput
	if truncated {
		r.logf("output truncated", "run_id", runID, "cap_bytes", maxOutput)
	}

	return &Result{
		RunID:     runID,
		ExitCode:  exitCode,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Elapsed:   elapsed,
		Truncated: truncated,
	}, nil
}

func (r *Runner) logf(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Debug(msg, args...)
	}
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
