// Package runner executes a sequence of statements and persists each result.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vibesql/queryrunner/internal/database"
	"github.com/vibesql/queryrunner/internal/export"
	"github.com/vibesql/queryrunner/internal/logger"
	"github.com/vibesql/queryrunner/internal/query"
)

// TimestampFormat is the layout of the run timestamp in output file names.
const TimestampFormat = "20060102_150405"

// Session is a live database session able to execute statements.
type Session interface {
	query.QueryExecutor
	Close() error
}

// ConnectFunc establishes the session used for a whole run.
type ConnectFunc func(ctx context.Context) (Session, error)

// Observer is notified as statements progress.
type Observer interface {
	StatementStarted(stmt query.Statement, total int)
	StatementFinished(outcome Outcome, total int)
}

// Config is the immutable configuration of a Runner.
type Config struct {
	// OutputDir receives one CSV file per successful statement. It is
	// created when missing.
	OutputDir string

	// MaxStatementSize refuses larger statements without running them. Zero disables it.
	MaxStatementSize int

	// Safe refuses UPDATE and DELETE statements without a WHERE clause.
	Safe bool

	// Clock returns the run start time. Defaults to time.Now.
	Clock func() time.Time

	Logger   logger.Logger
	Observer Observer
}

// Runner runs statements strictly one after another on a single session.
type Runner struct {
	config  Config
	connect ConnectFunc
	log     logger.Logger
}

// New creates a Runner.
func New(config Config, connect ConnectFunc) *Runner {
	if config.Clock == nil {
		config.Clock = time.Now
	}

	if config.Logger == nil {
		config.Logger = logger.Discard()
	}

	if config.Observer == nil {
		config.Observer = nopObserver{}
	}

	return &Runner{
		config:  config,
		connect: connect,
		log:     config.Logger,
	}
}

// OutputPath returns the file name used for a statement in a run started at startedAt.
func OutputPath(dir string, index int, startedAt time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("query_%d_%s.csv", index, startedAt.Format(TimestampFormat)))
}

// Run executes statements in index order. Statement failures are recorded in
// the summary and never stop the run. An empty statement list fails with
// ErrNoStatements before connecting, and a connection failure aborts the run
// before anything executes. If the output directory disappears and cannot be
// recreated, or ctx is canceled, the remaining statements are marked failed
// without running and the partial summary is returned with the cause.
func (r *Runner) Run(ctx context.Context, statements []query.Statement) (*Summary, error) {
	if len(statements) == 0 {
		return nil, ErrNoStatements
	}

	startedAt := r.config.Clock()
	summary := newSummary(uuid.NewString(), startedAt, r.config.OutputDir, len(statements))
	log := r.log.AddContext(logger.Ctx{"run": summary.RunID})

	err := os.MkdirAll(r.config.OutputDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputUnavailable, err)
	}

	session, err := r.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	defer func() {
		err := session.Close()
		if err != nil {
			log.Warn("Failed to close database session", logger.Ctx{"err": err})
		}
	}()

	log.Info("Executing statements", logger.Ctx{"count": len(statements), "output": r.config.OutputDir})

	for i, stmt := range statements {
		err := ctx.Err()
		if err != nil {
			return summary, r.abort(log, summary, statements[i:], fmt.Errorf("run interrupted: %w", err))
		}

		err = os.MkdirAll(r.config.OutputDir, 0o755)
		if err != nil {
			return summary, r.abort(log, summary, statements[i:], fmt.Errorf("%w: %w", ErrOutputUnavailable, err))
		}

		r.config.Observer.StatementStarted(stmt, summary.Total)

		outcome := r.runStatement(ctx, session, stmt, startedAt)
		summary.record(outcome)

		if outcome.Succeeded() {
			log.Info("Statement written", logger.Ctx{"index": stmt.Index, "rows": outcome.RowCount, "path": outcome.Path})
		} else {
			log.Error("Statement failed", logger.Ctx{"index": stmt.Index, "err": outcome.Message()})
		}

		r.config.Observer.StatementFinished(outcome, summary.Total)
	}

	log.Info("Run complete", logger.Ctx{"total": summary.Total, "succeeded": summary.Succeeded, "failed": summary.Failed})

	return summary, nil
}

// abort marks the remaining statements failed without running them.
func (r *Runner) abort(log logger.Logger, summary *Summary, remaining []query.Statement, err error) error {
	log.Error("Stopping run", logger.Ctx{"err": err, "remaining": len(remaining)})

	for _, skipped := range remaining {
		outcome := Outcome{Statement: skipped, State: StateFailed, Err: err}
		summary.record(outcome)
		r.config.Observer.StatementFinished(outcome, summary.Total)
	}

	return err
}

func (r *Runner) runStatement(ctx context.Context, exec query.QueryExecutor, stmt query.Statement, startedAt time.Time) Outcome {
	startTime := time.Now()
	outcome := Outcome{Statement: stmt, State: StateExecuting}

	fail := func(err error) Outcome {
		outcome.State = StateFailed
		outcome.Err = err
		outcome.Duration = time.Since(startTime)
		return outcome
	}

	err := query.ValidateStatement(stmt.Text, r.config.MaxStatementSize)
	if err != nil {
		return fail(executionError(stmt, err))
	}

	if r.config.Safe {
		err = query.CheckSafety(stmt.Text)
		if err != nil {
			return fail(executionError(stmt, err))
		}
	}

	result, err := exec.Execute(ctx, stmt.Text)
	if err != nil {
		return fail(executionError(stmt, err))
	}

	path := OutputPath(r.config.OutputDir, stmt.Index, startedAt)

	count, err := export.WriteCSV(result, path)
	if err != nil {
		return fail(err)
	}

	outcome.State = StateWritten
	outcome.Path = path
	outcome.RowCount = count
	if len(result.Columns) == 0 {
		outcome.RowCount = result.RowCount
	}

	outcome.Duration = time.Since(startTime)

	return outcome
}

func executionError(stmt query.Statement, err error) *ExecutionError {
	dbErr := database.TranslateError(err)

	return &ExecutionError{
		Statement: stmt,
		Code:      dbErr.Code,
		Message:   dbErr.Message,
		Err:       err,
	}
}

type nopObserver struct{}

func (nopObserver) StatementStarted(query.Statement, int) {}

func (nopObserver) StatementFinished(Outcome, int) {}
