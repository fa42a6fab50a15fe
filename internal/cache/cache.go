package cache

import (
	"context"
	"time"

	"barbearia/backend/internal/domain"
)

type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.FinancialSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.FinancialSummary, ttl time.Duration) error
	Purge(ctx context.Context) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.FinancialSummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.FinancialSummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Purge(_ context.Context) error {
	return nil
}
