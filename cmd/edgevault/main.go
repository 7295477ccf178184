package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"edgevault/internal/app"
	"edgevault/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("ERROR: %v\n", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return application.Run(ctx)
}
