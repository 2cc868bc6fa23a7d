// Command server runs the collaborative dashboard layout backend: the REST
// API, the websocket channel, and the in-process lock/presence sweeper.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gridwise/layout-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}
