package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibesql/queryrunner/internal/version"
)

type cmdVersion struct {
	global *cmdGlobal
}

// Command generates the command definition.
func (c *cmdVersion) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "version"
	cmd.Short = "Print version information"
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run

	return cmd
}

// Run prints the build information.
func (c *cmdVersion) Run(cmd *cobra.Command, args []string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get().Full())
	return err
}
