// Package main runs the commerce API server.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nexcart/commerce-core/internal/runtime"
)

func main() {
	// Optional .env for local development; the environment wins over the file.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := runtime.NewApplication(ctx)
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("Server error: %v", err)
	}

	stop()
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
