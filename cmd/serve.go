package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/aircheck-cli/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	Long: `Loads every source, then serves JSON endpoints under /api/v1 plus /health and
/metrics until interrupted. Startup fails if any source is unavailable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTPAddr
		}
		app := server.New(server.Options{
			Corpus:     s.corpus,
			Engine:     s.engine,
			Forecaster: s.forecaster,
			Years:      cfg.Years,
			Logger:     logger,
		})
		timeout := time.Duration(cfg.ShutdownTimeoutSec) * time.Second
		return server.Run(ctx, app, addr, timeout, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config http_addr)")
	rootCmd.AddCommand(serveCmd)
}

