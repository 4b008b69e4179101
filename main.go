package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kettleby/rtmstap/assemble"
	"github.com/kettleby/rtmstap/config"
	"github.com/kettleby/rtmstap/summary"
	"github.com/kettleby/rtmstap/webhook"
)

const version = "0.3.0"

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:   "rtmstap",
		Short: "Capture realtime meeting media streams and reassemble them into synchronized recordings",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to TOML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(serveCmd(), assembleCmd(), muxFirstCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and ingest live meeting streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var generator *summary.Generator
			prompts, err := summary.NewPromptStore(cfg.SummaryPrompt)
			if err != nil {
				slog.Warn("Summary generation disabled", "error", err)
			} else {
				defer prompts.Close()
				generator = &summary.Generator{
					Prompts:       prompts,
					Client:        summary.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel),
					RecordingsDir: cfg.RecordingsDir,
					SummaryDir:    cfg.SummaryDir,
				}
			}

			ctx, cancel := context.WithCancel(context.Background())
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				slog.Debug("Received shutdown signal")
				cancel()
			}()

			return webhook.New(cfg, generator).Start(ctx)
		},
	}
}

func newAssembler(cfg *config.Config) *assemble.Assembler {
	return assemble.New(assemble.Config{
		RecordingsDir: cfg.RecordingsDir,
		FFmpegPath:    cfg.FFmpegPath,
		VideoHeader:   readAsset(cfg.VideoHeaderPath),
		BlackFrame:    readAsset(cfg.BlackFramePath),
	})
}

func readAsset(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Media asset not available, gap filling degraded",
			"error", err, "path", path)
		return nil
	}
	return data
}

func assembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assemble <meeting-uuid>",
		Short: "Reassemble a meeting's persisted chunks into a synchronized container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return newAssembler(cfg).Assemble(cmd.Context(), args[0])
		},
	}
}

func muxFirstCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mux-first <meeting-uuid>",
		Short: "Best-effort mux of the first audio and video file found for a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return newAssembler(cfg).MuxFirst(cmd.Context(), args[0])
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("rtmstap " + version)
		},
	}
}
