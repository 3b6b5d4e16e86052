/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobarthurs/pgguard/internal/config"
	"github.com/jacobarthurs/pgguard/internal/feedback"
	"github.com/jacobarthurs/pgguard/internal/history"
	"github.com/jacobarthurs/pgguard/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the pgguard HTTP API.

Endpoints: /health, /metrics, /advise, /analyze, /compare, /rules/upload,
/history, /heatmap, /dbinfo, /check_connection and the /feedback websocket.
High priority findings from /analyze are pushed to every /feedback client.`,
	Example: `  pgguard serve
  pgguard serve --addr 127.0.0.1:9000 --profile prod`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Addr()
		}

		ex, err := explainer(cmd, cfg)
		if err != nil {
			return err
		}
		rs, err := loadRules(cmd, cfg)
		if err != nil {
			return err
		}
		historyPath, err := cfg.HistoryPath()
		if err != nil {
			return err
		}

		srv := server.New(server.Options{
			ConnStr:  ex.ConnStr,
			Rules:    rs,
			History:  history.NewStore(historyPath),
			Timeout:  cfg.TimeoutDuration(),
			Notifier: feedback.LogNotifier{},
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addConnFlags(serveCmd)
	addRuleFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config, else :8000)")
}
