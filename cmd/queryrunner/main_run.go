package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibesql/queryrunner/internal/config"
	"github.com/vibesql/queryrunner/internal/database"
	"github.com/vibesql/queryrunner/internal/logger"
	"github.com/vibesql/queryrunner/internal/query"
	"github.com/vibesql/queryrunner/internal/report"
	"github.com/vibesql/queryrunner/internal/runner"
	"github.com/vibesql/queryrunner/internal/sqlfile"
)

type cmdRun struct {
	global *cmdGlobal

	// workDir is searched for SQL files when no file is given.
	workDir string

	flagFile      string
	flagOutputDir string
	flagConfig    string
	flagEnvFile   string
	flagDriver    string
	flagDSN       string
	flagTimeout   time.Duration
	flagMaxRows   int
	flagSafe      bool
}

// Command generates the command definition.
func (c *cmdRun) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.RunE = c.Run

	cmd.Flags().StringVarP(&c.flagFile, "file", "f", "", "SQL file to execute (default: first .sql file in the current directory)"+"``")
	cmd.Flags().StringVarP(&c.flagOutputDir, "output-dir", "o", config.DefaultOutputDir, "Output directory for CSV files"+"``")
	cmd.Flags().StringVar(&c.flagConfig, "config", "", "YAML configuration file"+"``")
	cmd.Flags().StringVar(&c.flagEnvFile, "env-file", "", "Environment file to load (default: .env)"+"``")
	cmd.Flags().StringVar(&c.flagDriver, "driver", "", "Database driver: mysql, postgres or sqlite"+"``")
	cmd.Flags().StringVar(&c.flagDSN, "dsn", "", "Driver connection string, overrides the DB_* settings"+"``")
	cmd.Flags().DurationVar(&c.flagTimeout, "timeout", 0, "Per-statement timeout, 0 for none"+"``")
	cmd.Flags().IntVar(&c.flagMaxRows, "max-rows", 0, "Fail statements returning more rows, 0 for no limit"+"``")
	cmd.Flags().BoolVar(&c.flagSafe, "safe", false, "Refuse UPDATE and DELETE statements without a WHERE clause")

	return cmd
}

// Run executes every statement of the selected SQL file.
func (c *cmdRun) Run(cmd *cobra.Command, args []string) error {
	exit, err := c.global.CheckArgs(cmd, args, 0, 0)
	if exit {
		return err
	}

	console := report.NewConsole(cmd.OutOrStdout())

	// Pick the SQL file.
	path := c.flagFile
	if path == "" {
		candidates, err := sqlfile.Find(c.workDir)
		if err != nil {
			return fmt.Errorf("%w, create a .sql file or specify one with -f", err)
		}

		console.Candidates(candidates)
		path = candidates[0]
	}

	text, err := sqlfile.Read(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.Sources{File: c.flagConfig, EnvFile: c.flagEnvFile})
	if err != nil {
		return err
	}

	c.applyFlags(cmd, &cfg)

	// Backslash escapes inside literals only exist in MySQL.
	driver, _ := database.NormalizeDriver(cfg.Database.Driver)
	splitter := query.Splitter{BackslashEscapes: driver == "" || driver == database.DriverMySQL}

	statements := splitter.Split(text)
	if len(statements) == 0 {
		return fmt.Errorf("%s: %w", path, runner.ErrNoStatements)
	}

	cfg, err = cfg.Validate()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Output:  cmd.ErrOrStderr(),
		Verbose: c.global.flagVerbose,
		Quiet:   c.global.flagQuiet,
	}).AddContext(logger.Ctx{"driver": cfg.Database.Driver})

	console.Banner(time.Now())
	console.Statements(path, len(statements))

	r := runner.New(runner.Config{
		OutputDir:        cfg.OutputDir,
		MaxStatementSize: cfg.MaxStatementSize,
		Safe:             cfg.Safe,
		Logger:           log,
		Observer:         console,
	}, runner.DatabaseConnector(cfg.DatabaseConfig(), query.WithTimeout(cfg.Timeout), query.WithMaxRows(cfg.MaxRows)))

	summary, err := r.Run(cmd.Context(), statements)
	if summary != nil {
		console.Summary(summary)
	}

	if err != nil {
		return err
	}

	if !summary.OK() {
		return fmt.Errorf("%d of %d statements failed, see %s", summary.Failed, summary.Total, absPath(cfg.OutputDir))
	}

	return nil
}

// applyFlags overrides the loaded configuration with the flags set on the command line.
func (c *cmdRun) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("output-dir") || cfg.OutputDir == "" {
		cfg.OutputDir = c.flagOutputDir
	}

	if flags.Changed("driver") {
		cfg.Database.Driver = c.flagDriver
	}

	if flags.Changed("dsn") {
		cfg.Database.DSN = c.flagDSN
	}

	if flags.Changed("timeout") {
		cfg.Timeout = c.flagTimeout
	}

	if flags.Changed("max-rows") {
		cfg.MaxRows = c.flagMaxRows
	}

	if flags.Changed("safe") {
		cfg.Safe = c.flagSafe
	}
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return abs
}
