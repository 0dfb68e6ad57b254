package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tiltcast/tiltcast/pkg/cache"
	"github.com/tiltcast/tiltcast/pkg/estimator"
	"github.com/tiltcast/tiltcast/pkg/geocode"
	"github.com/tiltcast/tiltcast/pkg/log"
	"github.com/tiltcast/tiltcast/pkg/refresher"
	"github.com/tiltcast/tiltcast/pkg/server"
	"github.com/tiltcast/tiltcast/pkg/weather"

	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// load a local .env if one exists, flags still win
	_ = godotenv.Load()

	// init packages
	g := geocode.Configured()
	w := weather.Configured(g)
	c := cache.Configured()
	est := estimator.Configured(w, g, c)

	// init server and background refresher
	srv := server.Configured(est)
	ref := refresher.Configured(est)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := c.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close cache", "error", err)
		}
	}()

	if err := ref.Start(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "refresher failed to start", "error", err)
		os.Exit(1)
	}
	defer ref.Stop()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
