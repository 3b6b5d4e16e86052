/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/jacobarthurs/pgguard/internal/logging"

	"github.com/spf13/cobra"
)

var Version = "dev"

func init() {
	if Version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
	}
	rootCmd.Version = Version
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// ExitError ends the process with Code without printing an error. Commands
// return it for policy failures such as --fail-on-high.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

var rootCmd = &cobra.Command{
	Use:           "pgguard",
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "Rule-based advisor for PostgreSQL query plans",
	Long: `pgguard walks PostgreSQL EXPLAIN plans against a set of declarative rules
and reports each problem with a recommendation, a priority and, where possible,
a corrective statement whose effect can be measured before it is applied.

Supports SQL and JSON input formats, a YAML rule language and an HTTP API.`,
	Example: `  # Analyze a single query
  pgguard analyze query.sql --profile prod

  # Fail a CI job on high priority findings
  pgguard analyze plan.json --fail-on-high

  # Run the HTTP API
  pgguard serve --addr :8000

  # Setup connection profiles
  pgguard init`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logging.Init(verbose, os.Stderr)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
