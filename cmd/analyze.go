/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/config"
	"github.com/jacobarthurs/pgguard/internal/history"
	"github.com/jacobarthurs/pgguard/internal/output"
	"github.com/jacobarthurs/pgguard/internal/plan"
	"github.com/jacobarthurs/pgguard/internal/rules"
	"github.com/jacobarthurs/pgguard/internal/stats"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a single query plan",
	Long: `Analyze a single PostgreSQL query plan against the rule set and report
every match with its recommendation, priority and corrective statement.

Input can be a SQL file, or JSON file (EXPLAIN output).
Use "-" to read from stdin. If no file is provided, enters interactive mode.

For SQL input, a database connection is required to run EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON).`,
	Example: `  # Analyze from file
  pgguard analyze query.sql

  # Use saved profile and measure every suggested fix
  pgguard analyze query.sql --profile prod --what-if

  # Compare against an alternative plan
  pgguard analyze before.json --alt after.json

  # Team rules only, Markdown report for a pull request
  pgguard analyze plan.json --no-builtin -r team-rules.yaml -f md

  # Read from stdin
  cat query.sql | pgguard analyze -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		altFile, _ := cmd.Flags().GetString("alt")
		whatIf, _ := cmd.Flags().GetBool("what-if")
		withStats, _ := cmd.Flags().GetBool("stats")
		save, _ := cmd.Flags().GetBool("save")
		failOnHigh, _ := cmd.Flags().GetBool("fail-on-high")

		if err := validateFormat(format, "text", "json", "md"); err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ex, err := explainer(cmd, cfg)
		if err != nil {
			return err
		}
		rs, err := loadRules(cmd, cfg)
		if err != nil {
			return err
		}

		var file string
		if len(args) > 0 {
			file = args[0]
		}
		query, isSQL := plan.ReadQuery(file)
		if whatIf && !isSQL {
			return fmt.Errorf("--what-if needs a SQL file: fixes are measured by re-planning the query")
		}

		ctx := cmd.Context()

		planOutput, err := plan.Resolve(ctx, file, ex, "")
		if err != nil {
			return err
		}

		var alt *plan.PlanNode
		if altFile != "" {
			altOutput, err := plan.Resolve(ctx, altFile, ex, "alternative ")
			if err != nil {
				return fmt.Errorf("alternative plan: %w", err)
			}
			alt = &altOutput.Plan
		}

		a := advisor.Build(&planOutput.Plan, rs, alt)

		if whatIf {
			advisor.MeasureFixes(ctx, &a, func(ctx context.Context, ddl string) (plan.PlanNode, error) {
				fixed, err := ex.ExplainWithFix(ctx, query, ddl, plan.DefaultOptions())
				return fixed.Plan, err
			})
		}

		report := output.NewReport(query, planOutput, a)

		if withStats {
			if err := attachStats(ctx, ex.ConnStr, &report); err != nil {
				return err
			}
		}

		if save {
			if err := saveReport(cfg, &planOutput.Plan, report); err != nil {
				return err
			}
		}

		if err := renderReport(cmd.OutOrStdout(), format, report); err != nil {
			return err
		}

		if failOnHigh && a.HasPriority(rules.High) {
			return &ExitError{Code: 1}
		}
		return nil
	},
}

func attachStats(ctx context.Context, connStr string, r *output.Report) error {
	c, err := stats.Open(connStr)
	if err != nil {
		return err
	}
	defer c.Close()

	snap, err := c.Collect(ctx, "", r.Query)
	if err != nil {
		return err
	}
	locks, err := c.CollectLocks(ctx)
	if err != nil {
		return err
	}

	r.Metrics = snap
	r.Locks = &locks
	return nil
}

func saveReport(cfg *config.Config, root *plan.PlanNode, r output.Report) error {
	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	_, err = history.NewStore(path).Add(history.Record{
		Query:   r.Query,
		Table:   advisor.Placeholders(root)["relation"],
		Advice:  r.Advice,
		Metrics: r.Metrics,
		Locks:   r.Locks,
	})
	return err
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addConnFlags(analyzeCmd)
	addRuleFlags(analyzeCmd)
	analyzeCmd.Flags().StringP("format", "f", "text", "Output format: text, json, md")
	analyzeCmd.Flags().String("alt", "", "Alternative plan or query to compare against")
	analyzeCmd.Flags().Bool("what-if", false, "Measure every corrective statement in a rolled-back transaction")
	analyzeCmd.Flags().Bool("stats", false, "Attach server metrics and lock state")
	analyzeCmd.Flags().Bool("save", false, "Append the result to the history file")
	analyzeCmd.Flags().Bool("fail-on-high", false, "Exit with status 1 when a high priority issue is found")
}
