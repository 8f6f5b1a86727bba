package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/research/internal/app"
	"github.com/xhad/research/internal/logger"
	"github.com/xhad/research/pkg/config"
	"github.com/xhad/research/pkg/rag"
)

type options struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "research",
		Short:         "Ask questions about the content of web pages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newIngestCmd(opts),
		newAskCmd(opts),
		newChatCmd(opts),
		newServeCmd(opts),
	)
	return rootCmd
}

// setup loads the configuration and builds the pipeline shared by all commands.
func (o *options) setup(onFetch func(url string)) (*config.Config, *slog.Logger, *rag.Pipeline, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.UI.LogLevel = o.logLevel
	}

	log := logger.New(cfg.UI.LogLevel, os.Stderr)
	pipeline, err := app.NewPipeline(cfg, log, onFetch)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, pipeline, nil
}
