package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/telfeed/inboxd/internal/inbox/domain"
	"github.com/telfeed/inboxd/internal/inbox/repository"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// QueryParamError reports a pagination parameter that failed validation.
// Out-of-range values are rejected, never silently clamped.
type QueryParamError struct {
	Param  string
	Reason string
}

func (e *QueryParamError) Error() string {
	return fmt.Sprintf("invalid query parameter %q: %s", e.Param, e.Reason)
}

// ListParams is the validated form of the /messages query string.
type ListParams struct {
	Limit  int
	Offset int
	Filter domain.MessageFilter
}

// ParseListParams applies defaults (limit 50, offset 0) and bounds
// (limit in [1,100], offset >= 0) to the raw query string values.
// Filters pass through unchanged; empty means "match all".
func ParseListParams(limitRaw, offsetRaw, from, since, q string) (ListParams, error) {
	params := ListParams{
		Limit:  defaultLimit,
		Offset: 0,
		Filter: domain.MessageFilter{From: from, Since: since, TextContains: q},
	}

	if limitRaw != "" {
		n, err := strconv.Atoi(limitRaw)
		if err != nil {
			return ListParams{}, &QueryParamError{Param: "limit", Reason: "must be an integer"}
		}
		if n < 1 || n > maxLimit {
			return ListParams{}, &QueryParamError{Param: "limit", Reason: "must be between 1 and 100"}
		}
		params.Limit = n
	}

	if offsetRaw != "" {
		n, err := strconv.Atoi(offsetRaw)
		if err != nil {
			return ListParams{}, &QueryParamError{Param: "offset", Reason: "must be an integer"}
		}
		if n < 0 {
			return ListParams{}, &QueryParamError{Param: "offset", Reason: "must not be negative"}
		}
		params.Offset = n
	}

	return params, nil
}

// QueryService serves the read path over the message repository.
type QueryService struct {
	repo   repository.MessageRepository
	logger *slog.Logger
}

func NewQueryService(repo repository.MessageRepository, logger *slog.Logger) *QueryService {
	return &QueryService{
		repo:   repo,
		logger: logger.With("service", "query"),
	}
}

// List returns the page of messages selected by params together with the
// total number of rows matching the filters.
func (s *QueryService) List(ctx context.Context, params ListParams) ([]domain.Message, int, error) {
	messages, total, err := s.repo.List(ctx, params.Filter, params.Limit, params.Offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "message listing failed", "error", err)
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	return messages, total, nil
}
