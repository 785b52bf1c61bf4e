package memory

import (
	"context"
	"sort"
	"sync"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Signal // keyed by signal id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.Signal),
	}
}

// InsertBulk adds multiple signals atomically. Fails entire batch on any duplicate.
func (s *SignalStore) InsertBulk(_ context.Context, signals []*domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track ids in this batch to detect intra-batch duplicates
	batchIDs := make(map[string]struct{}, len(signals))

	// First pass: check for duplicates (existing + intra-batch)
	for _, sig := range signals {
		if sig == nil || sig.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[sig.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchIDs[sig.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchIDs[sig.ID] = struct{}{}
	}

	// Second pass: insert all
	for _, sig := range signals {
		copy := *sig
		s.data[sig.ID] = &copy
	}

	return nil
}

// GetByTimeRange retrieves signals triggered within [start, end] (inclusive).
func (s *SignalStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if sig.TriggeredAt >= start && sig.TriggeredAt <= end {
			copy := *sig
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TriggeredAt != result[j].TriggeredAt {
			return result[i].TriggeredAt < result[j].TriggeredAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.SignalStore = (*SignalStore)(nil)
