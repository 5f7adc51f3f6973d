package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Innoddu/speakflow/internal/config"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript <video-id>",
	Short: "Build a practice transcript for one video",
	Long: `Run the full pipeline for a single video ID and print the resulting
timed sentence list as JSON. The result is cached, so a second run for the
same video returns immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscript,
}

var skipCache bool

func init() {
	transcriptCmd.Flags().BoolVar(&skipCache, "no-cache", false, "recompute even if cached")
	rootCmd.AddCommand(transcriptCmd)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	videoID := args[0]
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, _, err := buildService(cfg, skipCache)
	if err != nil {
		return err
	}

	result, err := svc.GetPracticeTranscript(ctx, videoID)
	if err != nil {
		return fmt.Errorf("build transcript: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if !quiet {
		slog.Info("done", "sentences", len(result.Sentences), "source", result.Source)
	}
	return nil
}
