// Package report provides persistence and retrieval of run records,
// so past load-test outcomes can be drilled into by run ID.
package report

import (
	"time"

	"github.com/barragehq/barrage/internal/artillery"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Run is a scenario run (file-based or inline).
	Run Kind = "run"
	// Quick is an ad-hoc quick test.
	Quick Kind = "quick"
)

// Store persists and retrieves run records.
type Store interface {
	Save(record *RunRecord) error
	Load(runID string) (*RunRecord, error)
}

// RunRecord is the stored outcome of one executed run.
type RunRecord struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	ExitCode  int       `json:"exit_code"`
	ElapsedMs int64     `json:"elapsed_ms"`
	LogTail   string    `json:"log_tail,omitempty"`

	// Artifact locations, when the run produced them.
	ResultPath string `json:"result_path,omitempty"`
	ReportPath string `json:"report_path,omitempty"`

	Summary *artillery.Summary `json:"summary,omitempty"`
}

// FromRunResult builds a record from a completed run.
func FromRunResult(kind Kind, res *artillery.RunResult) *RunRecord {
	return &RunRecord{
		ID:         res.RunID,
		Kind:       kind,
		CreatedAt:  time.Now().UTC(),
		ExitCode:   res.ExitCode,
		ElapsedMs:  res.ElapsedMs,
		LogTail:    res.LogTail,
		ResultPath: res.ResultPath,
		ReportPath: res.ReportPath,
		Summary:    res.Summary,
	}
}
