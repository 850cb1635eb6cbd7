package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/uploader/config"
	"github.com/brensch/uploader/discord"
	"github.com/brensch/uploader/liveness"
	"github.com/brensch/uploader/log"
	"github.com/brensch/uploader/metrics"
	"github.com/brensch/uploader/telemetry"
	"github.com/brensch/uploader/upload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Debug until the configured level is known.
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	opts := log.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: level,
		},
	}
	slog.SetDefault(slog.New(log.NewPrettyHandler(os.Stdout, opts)))

	slog.Info("image uploader starting")

	cfg := config.Get()
	if lvl, err := log.ParseLevel(cfg.Log.Level); err != nil {
		slog.Warn("unknown log level, keeping debug", "level", cfg.Log.Level)
	} else {
		level.Set(lvl)
	}
	slog.Info("configuration loaded", "channel_id", cfg.Discord.ChannelID, "confirm_timeout", cfg.Confirm.Timeout)

	shutdownTracing, err := telemetry.Init(ctx, "uploader", cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("failed to flush traces", "error", err)
		}
	}()

	m := metrics.Default()

	bot, err := discord.NewBot(discord.BotConfig{
		BotToken:       cfg.Discord.BotToken,
		ChannelID:      cfg.Discord.ChannelID,
		AnnounceOnline: cfg.Discord.AnnounceOnline,
	})
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	handler := upload.NewHandler(bot.Session(), bot.Waiter(), upload.Config{
		ChannelID:      cfg.Discord.ChannelID,
		Emoji:          cfg.Confirm.Emoji,
		ConfirmTimeout: cfg.Confirm.Timeout,
		Imgbb: upload.PipelineConfig{
			APIKey:   cfg.Imgbb.APIKey,
			Endpoint: cfg.Imgbb.Endpoint,
			Timeout:  cfg.Imgbb.Timeout,
		},
	}, m)

	g, ctx := errgroup.WithContext(ctx)

	// The liveness endpoint comes up before the gateway connection so the host sees the process as healthy.
	g.Go(func() error {
		return liveness.NewServer(cfg.Liveness.Addr).Run(ctx)
	})

	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return liveness.NewNamedServer("metrics", cfg.Metrics.Addr, metrics.Handler(prometheus.DefaultGatherer)).Run(ctx)
		})
	}

	g.Go(func() error {
		if err := bot.Open(handler); err != nil {
			return err
		}
		slog.Info("bot is now running", "channel_id", cfg.Discord.ChannelID)

		<-ctx.Done()
		return bot.Close()
	})

	if err := g.Wait(); err != nil {
		slog.Error("uploader stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("uploader stopped")
}
