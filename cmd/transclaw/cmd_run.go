package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zhaopengme/transclaw/pkg/channels"
	"github.com/zhaopengme/transclaw/pkg/config"
	"github.com/zhaopengme/transclaw/pkg/dedup"
	"github.com/zhaopengme/transclaw/pkg/extract"
	"github.com/zhaopengme/transclaw/pkg/gateway"
	"github.com/zhaopengme/transclaw/pkg/handlers"
	"github.com/zhaopengme/transclaw/pkg/logger"
	"github.com/zhaopengme/transclaw/pkg/metrics"
	"github.com/zhaopengme/transclaw/pkg/translate"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot and poll Telegram until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := setupLogging(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBot(ctx, cfg)
		},
	}
}

// buildServices constructs the translation and extraction services from cfg.
func buildServices(cfg *config.Config) (*translate.Service, *extract.Service, error) {
	backend, err := translate.NewBackend(cfg.Translation)
	if err != nil {
		return nil, nil, fmt.Errorf("translation backend: %w", err)
	}
	translator := translate.NewService(backend, translate.NewWhatlangDetector(), cfg.Translation.TargetLanguage)

	extractor, err := extract.NewExtractor(cfg.Extraction)
	if err != nil {
		return nil, nil, fmt.Errorf("extraction backend: %w", err)
	}
	extraction := extract.NewService(extractor, translator).WithTimeout(cfg.Extraction.Timeout)
	return translator, extraction, nil
}

func runBot(ctx context.Context, cfg *config.Config) error {
	translator, extraction, err := buildServices(cfg)
	if err != nil {
		return err
	}

	client, err := channels.NewTelegramClient(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Relay.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	metrics.Register()
	metrics.Serve(ctx, cfg.Metrics.Addr)

	store := dedup.NewStore(cfg.Relay.EventCacheSize, cfg.Relay.FileCacheTTL)
	target := cfg.Translation.TargetLanguage
	dispatcher := gateway.NewDispatcher(
		store,
		client,
		handlers.NewTextHandler(client, translator, target),
		handlers.NewImageHandler(client, store, extraction, target),
		gateway.WithAllowlist(cfg.Telegram.AllowsChat),
	)

	gw := gateway.New(client, dispatcher, gateway.Options{
		Workers:      cfg.Relay.Workers,
		QueueSize:    cfg.Relay.QueueSize,
		ErrorPause:   cfg.Relay.ErrorPause,
		NetworkPause: cfg.Relay.NetworkPause,
	})

	logger.InfoCF("main", "TransClaw starting", map[string]interface{}{
		"version":     formatVersion(),
		"translation": cfg.Translation.Provider,
		"extraction":  cfg.Extraction.Provider,
		"target":      target,
		"workers":     cfg.Relay.Workers,
	})
	err = gw.Run(ctx)
	logger.InfoC("main", "TransClaw stopped")
	return err
}
