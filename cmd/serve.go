package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Innoddu/speakflow/internal/config"
	"github.com/Innoddu/speakflow/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

var listenAddr string

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, catalog, err := buildService(cfg, false)
	if err != nil {
		return err
	}

	srv := server.New(svc, catalog)
	slog.Info("listening", "addr", cfg.ListenAddr)
	return srv.Listen(ctx, cfg.ListenAddr)
}
