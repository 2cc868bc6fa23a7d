// Command prune-versions physically removes ARCHIVED layout versions older
// than the configured retention period, always keeping the most recent
// versions of every layout. It is intended to be invoked by an external
// cron job, not as an in-process goroutine.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gridwise/layout-backend/internal/adapter/postgres"
	versionrepo "github.com/gridwise/layout-backend/internal/adapter/postgres/version"
	"github.com/gridwise/layout-backend/internal/app"
	"github.com/gridwise/layout-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	versions := versionrepo.New(pool)

	threshold := time.Now().AddDate(0, 0, -cfg.Retention.ArchivedRetentionDays)

	deleted, err := versions.PruneArchived(ctx, threshold, cfg.Retention.MinVersionsPerLayout)
	if err != nil {
		logger.Error("prune failed",
			slog.String("error", err.Error()),
			slog.Time("threshold", threshold),
		)
		os.Exit(1)
	}

	logger.Info("prune completed",
		slog.Int64("deleted", deleted),
		slog.Time("threshold", threshold),
		slog.Int("min_versions_per_layout", cfg.Retention.MinVersionsPerLayout),
	)
}
