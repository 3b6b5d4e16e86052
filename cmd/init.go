/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"fmt"

	"github.com/jacobarthurs/pgguard/internal/config"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with example template",
	Long: `Create the pgguard config file (config.yaml in the user config directory)
with an example template.

The config file stores named database connection profiles, extra rule files,
the history location and the API listen address. If a config file already
exists, it will not be overwritten.`,
	Example: `  # Create default config
  pgguard init

  # Overwrite existing config
  pgguard init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path, err := config.WriteExample(force)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created config at %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolP("force", "f", false, "Overwrite existing config file")
}
