/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/config"
	"github.com/jacobarthurs/pgguard/internal/output"
	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/rules"

	"github.com/spf13/cobra"
)

func validateFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %q: must be one of %v", format, allowed)
}

func addConnFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("db", "d", "", "PostgreSQL connection string")
	cmd.Flags().StringP("profile", "p", "", "Use named profile from config")
	cmd.MarkFlagsMutuallyExclusive("db", "profile")
}

func addRuleFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("rules", "r", nil, "Extra rule file or directory (repeatable)")
	cmd.Flags().Bool("no-builtin", false, "Do not load the built-in rules")
}

// explainer builds the plan explainer for the connection selected by the
// --db and --profile flags.
func explainer(cmd *cobra.Command, cfg *config.Config) (*plan.Explainer, error) {
	db, _ := cmd.Flags().GetString("db")
	profileName, _ := cmd.Flags().GetString("profile")

	connStr, err := config.ResolveConnStr(db, profileName)
	if err != nil {
		return nil, err
	}
	return &plan.Explainer{ConnStr: connStr, Timeout: cfg.TimeoutDuration()}, nil
}

// loadRules composes the built-in rules, the config file's rule files and
// the --rules flags, in that order.
func loadRules(cmd *cobra.Command, cfg *config.Config) ([]rules.Rule, error) {
	noBuiltin, _ := cmd.Flags().GetBool("no-builtin")
	extra, _ := cmd.Flags().GetStringSlice("rules")

	files, err := cfg.RulePaths()
	if err != nil {
		return nil, err
	}
	return rules.Compose(!noBuiltin, append(files, extra...)...)
}

func renderReport(w io.Writer, format string, r output.Report) error {
	switch format {
	case "json":
		return output.RenderJSON(w, r)
	case "md":
		return output.RenderAdvisoryMarkdown(w, r)
	default:
		return output.RenderAdvisoryText(w, r)
	}
}

func renderComparison(w io.Writer, format string, c advisor.Comparison) error {
	switch format {
	case "json":
		return output.RenderJSON(w, c)
	case "md":
		return output.RenderComparisonMarkdown(w, c)
	default:
		return output.RenderComparisonText(w, c)
	}
}
