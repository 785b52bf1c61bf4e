package storage

import (
	"context"

	"signal-trade-lab/internal/domain"
)

// SignalStore provides access to the signal archive.
type SignalStore interface {
	// InsertBulk adds multiple signals atomically. Fails entire batch on any
	// duplicate signal id.
	InsertBulk(ctx context.Context, signals []*domain.Signal) error

	// GetByTimeRange retrieves signals triggered within [start, end]
	// (inclusive, unix ms), ordered by triggered_at ASC then id ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Signal, error)
}

// TradeLogStore provides access to persisted replay traces.
type TradeLogStore interface {
	// InsertBulk adds a run's traced commands atomically. Fails entire batch
	// on a duplicate (run_id, command_id).
	InsertBulk(ctx context.Context, runID string, entries []*domain.TracedCommand) error

	// GetByRunID retrieves a run's trace in its original processing order.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TracedCommand, error)
}
