package runner

import (
	"errors"
	"time"

	"github.com/vibesql/queryrunner/internal/export"
	"github.com/vibesql/queryrunner/internal/query"
)

// State is the lifecycle position of a statement within a run.
type State string

// Statement states. A statement never goes back to StatePending.
const (
	StatePending   State = "pending"
	StateExecuting State = "executing"
	StateWritten   State = "written"
	StateFailed    State = "failed"
)

// Outcome is the write-once result of one statement.
type Outcome struct {
	Statement query.Statement
	State     State
	Path      string
	RowCount  int
	Duration  time.Duration
	Err       error
}

// Succeeded reports whether rows were both fetched and persisted.
func (o Outcome) Succeeded() bool {
	return o.State == StateWritten
}

// Message returns the failure text, empty on success.
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}

	var execErr *ExecutionError
	if errors.As(o.Err, &execErr) {
		return execErr.Message
	}

	var writeErr *export.WriteError
	if errors.As(o.Err, &writeErr) {
		return writeErr.Error()
	}

	return o.Err.Error()
}

// Summary aggregates the outcomes of a run. Succeeded+Failed always equals Total.
type Summary struct {
	RunID       string
	StartedAt   time.Time
	OutputDir   string
	Total       int
	Succeeded   int
	Failed      int
	OutputPaths []string
	Outcomes    []Outcome
}

func newSummary(runID string, startedAt time.Time, outputDir string, total int) *Summary {
	return &Summary{
		RunID:       runID,
		StartedAt:   startedAt,
		OutputDir:   outputDir,
		Total:       total,
		OutputPaths: []string{},
		Outcomes:    make([]Outcome, 0, total),
	}
}

func (s *Summary) record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)

	if o.Succeeded() {
		s.Succeeded++
		s.OutputPaths = append(s.OutputPaths, o.Path)
		return
	}

	s.Failed++
}

// Failures returns the failed outcomes in statement order.
func (s *Summary) Failures() []Outcome {
	failures := []Outcome{}
	for _, o := range s.Outcomes {
		if !o.Succeeded() {
			failures = append(failures, o)
		}
	}

	return failures
}

// OK reports whether every statement succeeded.
func (s *Summary) OK() bool {
	return s.Failed == 0 && s.Succeeded == s.Total
}
