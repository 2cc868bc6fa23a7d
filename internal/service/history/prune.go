package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PruneArchived deletes ARCHIVED versions older than the configured
// retention window, always keeping the configured minimum number of most
// recent versions per layout. DRAFT, PREVIEW, and PUBLISHED versions are
// never pruned. Returns the number of versions removed.
func (s *Service) PruneArchived(ctx context.Context) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -s.retention.ArchivedRetentionDays)

	deleted, err := s.versions.PruneArchived(ctx, threshold, s.retention.MinVersionsPerLayout)
	if err != nil {
		return 0, fmt.Errorf("prune archived versions: %w", err)
	}

	s.log.InfoContext(ctx, "archived versions pruned",
		slog.Int64("deleted", deleted),
		slog.Time("threshold", threshold),
		slog.Int("min_versions_per_layout", s.retention.MinVersionsPerLayout),
	)

	return deleted, nil
}
