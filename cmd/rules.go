/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/jacobarthurs/pgguard/internal/config"
	"github.com/jacobarthurs/pgguard/internal/output"
	"github.com/jacobarthurs/pgguard/internal/rules"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate rule sets",
	Long: `Inspect the active rule set or validate YAML rule files.

A rule file is a list of entries with a name, a match block, a recommendation,
a priority (low, medium, high) and an optional fix_ddl template.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active rules in evaluation order",
	Example: `  pgguard rules list
  pgguard rules list -r team-rules.yaml --no-builtin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format, "text", "json"); err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		rs, err := loadRules(cmd, cfg)
		if err != nil {
			return err
		}

		if format == "json" {
			views := make([]ruleView, 0, len(rs))
			for _, r := range rs {
				views = append(views, ruleView{
					Name:           r.Name,
					Priority:       r.Priority,
					Match:          r.Match.String(),
					Recommendation: r.Recommendation,
					FixDDL:         r.FixDDL,
				})
			}
			return output.RenderJSON(cmd.OutOrStdout(), views)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tPRIORITY\tMATCH\tFIX")
		for _, r := range rs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Priority, r.Match, r.FixDDL)
		}
		return tw.Flush()
	},
}

type ruleView struct {
	Name           string         `json:"name"`
	Priority       rules.Priority `json:"priority"`
	Match          string         `json:"match"`
	Recommendation string         `json:"recommendation"`
	FixDDL         string         `json:"fix_ddl,omitempty"`
}

var rulesValidateCmd = &cobra.Command{
	Use:     "validate <file>...",
	Short:   "Check rule files for errors",
	Example: `  pgguard rules validate team-rules.yaml extra/*.yaml`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var errs []error
		for _, path := range args {
			rs, err := rules.LoadFile(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules OK\n", path, len(rs))
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	addRuleFlags(rulesListCmd)
	rulesListCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
}
