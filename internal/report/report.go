// Package report renders run progress and summaries for a terminal.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vibesql/queryrunner/internal/query"
	"github.com/vibesql/queryrunner/internal/runner"
)

const (
	ruleWidth      = 60
	statementWidth = 100
)

// Console writes human readable progress to an output stream.
type Console struct {
	out io.Writer
}

// NewConsole returns a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Ensure Console is usable as a run observer.
var _ runner.Observer = (*Console)(nil)

// Banner prints the run header.
func (c *Console) Banner(now time.Time) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(c.out, "\n%s\nQuery Runner - %s\n%s\n\n", rule, now.Format(time.DateTime), rule)
}

// Candidates lists the discovered SQL files when more than one was found.
func (c *Console) Candidates(paths []string) {
	if len(paths) < 2 {
		return
	}

	fmt.Fprintf(c.out, "Found %d SQL files:\n", len(paths))
	for i, path := range paths {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, filepath.Base(path))
	}

	fmt.Fprintf(c.out, "\nUsing: %s\n  (Use -f option to specify a different file)\n\n", filepath.Base(paths[0]))
}

// Statements reports the input file and how many statements it holds.
func (c *Console) Statements(path string, count int) {
	fmt.Fprintf(c.out, "Reading SQL file: %s\n", path)
	fmt.Fprintf(c.out, "Found %d query/queries\n\n", count)
}

// StatementStarted implements runner.Observer.
func (c *Console) StatementStarted(stmt query.Statement, total int) {
	fmt.Fprintf(c.out, "[%d/%d] Executing query...\n", stmt.Index, total)
}

// StatementFinished implements runner.Observer.
func (c *Console) StatementFinished(outcome runner.Outcome, total int) {
	if outcome.Succeeded() {
		fmt.Fprintf(c.out, "  ok: %d rows written to %s (%s)\n\n", outcome.RowCount, outcome.Path, outcome.Duration.Round(time.Millisecond))
		return
	}

	fmt.Fprintf(c.out, "  error [%d/%d]: %s\n", outcome.Statement.Index, total, outcome.Message())
	fmt.Fprintf(c.out, "  Query: %s\n\n", Truncate(outcome.Statement.Text, statementWidth))
}

// Summary prints the totals, the output directory and a per-statement table.
func (c *Console) Summary(summary *runner.Summary) {
	rule := strings.Repeat("=", ruleWidth)

	outputDir := summary.OutputDir
	abs, err := filepath.Abs(outputDir)
	if err == nil {
		outputDir = abs
	}

	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "Summary: %d/%d queries executed successfully\n", summary.Succeeded, summary.Total)
	fmt.Fprintf(c.out, "Output directory: %s\n", outputDir)
	fmt.Fprintf(c.out, "%s\n\n", rule)

	table := tablewriter.NewWriter(c.out)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"#", "STATUS", "ROWS", "RESULT"})

	for _, outcome := range summary.Outcomes {
		rows := ""
		result := filepath.Base(outcome.Path)
		if outcome.Succeeded() {
			rows = strconv.Itoa(outcome.RowCount)
		} else {
			result = Truncate(outcome.Message(), statementWidth)
		}

		table.Append([]string{strconv.Itoa(outcome.Statement.Index), string(outcome.State), rows, result})
	}

	table.Render()
	fmt.Fprintln(c.out)
}

// Truncate shortens text to at most width runes on a single line, marking
// any cut with an ellipsis.
func Truncate(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) <= width {
		return text
	}

	return string(runes[:width]) + "..."
}
