package runner

import (
	"fmt"
	"time"
)

// Result holds the output of a completed command execution.
type Result struct {
	RunID     string        // unique identifier for this run
	ExitCode  int           // process exit code (-1 when killed by signal)
	Stdout    []byte        // captured stdout (may be truncated)
	Stderr    []byte        // captured stderr (may be truncated)
	Elapsed   time.Duration // wall-clock runtime
	Truncated bool          // true if either stream hit the size cap
}

// TimeoutError reports a run killed by the wall-clock bound.
type TimeoutError struct {
	Binary  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Binary, e.Timeout)
}

// SpawnError reports a binary that could not be started at all,
// distinct from one that ran and exited nonzero.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
