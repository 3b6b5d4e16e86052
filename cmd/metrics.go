/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"fmt"

	"github.com/jacobarthurs/pgguard/internal/metrics"
	"github.com/jacobarthurs/pgguard/internal/output"

	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List the supported metric keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format, "text", "json"); err != nil {
			return err
		}

		if format == "json" {
			return output.RenderJSON(cmd.OutOrStdout(), map[string][]string{"metrics": metrics.Keys()})
		}
		for _, k := range metrics.Keys() {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), k); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
}
