package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"duel-arena/server/internal/app"
	"duel-arena/server/internal/config"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{Settings: settings, Input: os.Stdin}); err != nil {
		log.Fatalf("%v", err)
	}
}
