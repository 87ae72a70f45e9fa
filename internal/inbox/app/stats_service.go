package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/telfeed/inboxd/internal/inbox/domain"
	"github.com/telfeed/inboxd/internal/inbox/repository"
)

// StatsService shapes the repository's aggregate view for the API.
// The interesting rules (top-10 tie-break, nil timestamps on an empty
// store) live in the repository's Aggregate contract.
type StatsService struct {
	repo   repository.MessageRepository
	logger *slog.Logger
}

func NewStatsService(repo repository.MessageRepository, logger *slog.Logger) *StatsService {
	return &StatsService{
		repo:   repo,
		logger: logger.With("service", "stats"),
	}
}

func (s *StatsService) Snapshot(ctx context.Context) (*domain.Stats, error) {
	stats, err := s.repo.Aggregate(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "stats aggregation failed", "error", err)
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	if stats.TopSenders == nil {
		stats.TopSenders = []domain.SenderCount{}
	}
	return stats, nil
}
