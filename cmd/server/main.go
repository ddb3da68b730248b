package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-print"

	auth "github.com/goliatone/go-agent-auth"
	"github.com/goliatone/go-agent-auth/config"
	"github.com/goliatone/go-agent-auth/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	settings, err := config.Load()
	if err != nil {
		panic(err)
	}

	lgr, err := auth.NewZapLoggerFromEnv(settings.App.Debug)
	if err != nil {
		panic(err)
	}
	defer lgr.Sync()

	if settings.App.Debug {
		lgr.Debug("settings loaded", "files", settings.Files, "settings", print.MaybePrettyJSON(redacted(settings)))
	}

	ctx := context.Background()

	app, err := server.New(ctx, settings, server.WithLogger(lgr.Named("app")))
	if err != nil {
		lgr.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := app.Listen(); err != nil {
			lgr.Error("http server stopped", "error", err)
		}
	}()

	lgr.Info("listening", "addr", settings.App.HTTPAddr, "environment", settings.App.Environment)

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		lgr.Error("shutdown failed", "error", err)
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

func redacted(s *config.Settings) config.Settings {
	out := *s
	out.JWT.SecretKey = "********"
	return out
}
