package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/faddenpatrick/ironledger/internal/cli"
	"github.com/faddenpatrick/ironledger/internal/config"
	"github.com/faddenpatrick/ironledger/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewDefault()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
