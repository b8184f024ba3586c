package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vibesql/queryrunner/internal/version"
)

type cmdGlobal struct {
	flagVerbose bool
	flagQuiet   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newApp(".").ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// newApp builds the command tree. workDir is searched for SQL files when no file is given.
func newApp(workDir string) *cobra.Command {
	globalCmd := cmdGlobal{}
	runCmd := cmdRun{global: &globalCmd, workDir: workDir}

	app := runCmd.Command()
	app.Use = version.Name
	app.Short = "Execute SQL statements from a file and save each result to CSV"
	app.Long = `Description:
  Execute SQL statements from a file and save each result to CSV

  Statements are separated by ';' and run one after another on a single
  database session. Every statement that succeeds produces one file named
  query_<N>_<YYYYMMDD>_<HHMMSS>.csv in the output directory, where N is the
  statement's position in the file. A failing statement is reported and the
  remaining statements still run.

  Without -f, the first *.sql file of the current directory is used.

Environment:
  DB_DRIVER     Database driver: mysql, postgres or sqlite (default: mysql)
  DB_DSN        Complete driver connection string (overrides the values below)
  DB_HOST       Database host (default: localhost)
  DB_PORT       Database port (default: 3306 for mysql, 5432 for postgres)
  DB_USER       Database user
  DB_PASSWORD   Database password
  DB_NAME       Database name (file path for sqlite)

  Values are also read from a .env file in the current directory.
`
	app.Example = `  queryrunner                       Run the first .sql file in the current directory
  queryrunner -f queries.sql        Run a specific SQL file
  queryrunner -o results/           Write CSV files to a custom directory`
	app.SilenceUsage = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}

	// Global flags.
	app.PersistentFlags().BoolVarP(&globalCmd.flagVerbose, "verbose", "v", false, "Show all debug messages")
	app.PersistentFlags().BoolVarP(&globalCmd.flagQuiet, "quiet", "q", false, "Only show warnings and errors")

	// Version handling.
	app.SetVersionTemplate("{{.Version}}\n")
	app.Version = version.Get().String()

	// version sub-command.
	versionCmd := cmdVersion{global: &globalCmd}
	app.AddCommand(versionCmd.Command())

	return app
}

// CheckArgs validates the number of arguments passed to the function and shows the help if incorrect.
func (c *cmdGlobal) CheckArgs(cmd *cobra.Command, args []string, minArgs int, maxArgs int) (bool, error) {
	if len(args) < minArgs || (maxArgs != -1 && len(args) > maxArgs) {
		_ = cmd.Help()

		if len(args) == 0 {
			return true, nil
		}

		return true, fmt.Errorf("Invalid number of arguments")
	}

	return false, nil
}
