package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"quickassist/config"
	"quickassist/di"
	"quickassist/shared/logger"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console := di.InitializeConsole()
	if err := console.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("console terminated")
	}
}
