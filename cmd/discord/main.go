// cmd/discord/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/keshon/orcabot/internal/app"
	"github.com/keshon/orcabot/internal/config"
	"github.com/keshon/orcabot/internal/discord"
	"github.com/keshon/orcabot/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "orcabot:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting orcabot",
		zap.String("store", cfg.StoreBackend),
		zap.String("prefix", cfg.CommandPrefix),
		zap.Bool("inara", cfg.InaraAPIKey != ""))

	svc, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.Close(shutdown); err != nil {
			logger.Error("failed to flush stores", zap.Error(err))
		}
	}()

	bot, err := discord.New(cfg, svc.Dispatcher, svc.Stores, logger.Named("discord"))
	if err != nil {
		return err
	}
	if err := bot.Run(ctx); err != nil {
		return err
	}
	logger.Info("orcabot exited cleanly")
	return nil
}
