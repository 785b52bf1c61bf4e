package memory

import (
	"context"
	"sync"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/storage"
)

// TradeLogStore is an in-memory implementation of storage.TradeLogStore.
// Traces are kept per run in their original processing order.
type TradeLogStore struct {
	mu   sync.RWMutex
	runs map[string][]*domain.TracedCommand
	seen map[string]struct{} // run_id|command_id
}

// NewTradeLogStore creates a new in-memory trade log store.
func NewTradeLogStore() *TradeLogStore {
	return &TradeLogStore{
		runs: make(map[string][]*domain.TracedCommand),
		seen: make(map[string]struct{}),
	}
}

// InsertBulk adds a run's traced commands atomically. Fails entire batch on
// any duplicate (run_id, command_id).
func (s *TradeLogStore) InsertBulk(_ context.Context, runID string, entries []*domain.TracedCommand) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e == nil || e.Command == nil || e.Command.ID == "" {
			return storage.ErrInvalidInput
		}
		key := runID + "|" + e.Command.ID
		if _, exists := s.seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range entries {
		cmd := *e.Command
		copy := *e
		copy.Command = &cmd
		s.runs[runID] = append(s.runs[runID], &copy)
		s.seen[runID+"|"+e.Command.ID] = struct{}{}
	}

	return nil
}

// GetByRunID retrieves a run's trace in its original processing order.
func (s *TradeLogStore) GetByRunID(_ context.Context, runID string) ([]*domain.TracedCommand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.runs[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	result := make([]*domain.TracedCommand, len(entries))
	for i, e := range entries {
		cmd := *e.Command
		copy := *e
		copy.Command = &cmd
		result[i] = &copy
	}
	return result, nil
}

var _ storage.TradeLogStore = (*TradeLogStore)(nil)
