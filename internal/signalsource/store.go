package signalsource

import (
	"context"
	"io"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/storage"
)

// StoreSource adapts a storage.SignalStore to the Source interface,
// paginating one archive query into fixed-size batches. The store query
// runs once on the first Next call.
type StoreSource struct {
	store      storage.SignalStore
	start, end int64
	batchSize  int

	signals []*domain.Signal
	offset  int
	fetched bool
}

// NewStoreSource creates a source over archived signals in [start, end]
// (unix ms). batchSize caps the signals returned per Next call.
func NewStoreSource(store storage.SignalStore, start, end int64, batchSize int) *StoreSource {
	if batchSize <= 0 {
		batchSize = DefaultPageSize
	}
	return &StoreSource{
		store:     store,
		start:     start,
		end:       end,
		batchSize: batchSize,
	}
}

// Next returns the next batch. Returns io.EOF when the range is exhausted.
func (s *StoreSource) Next(ctx context.Context) ([]*domain.Signal, error) {
	if !s.fetched {
		signals, err := s.store.GetByTimeRange(ctx, s.start, s.end)
		if err != nil {
			return nil, err
		}
		s.signals = signals
		s.fetched = true
	}

	if s.offset >= len(s.signals) {
		return nil, io.EOF
	}

	end := s.offset + s.batchSize
	if end > len(s.signals) {
		end = len(s.signals)
	}

	batch := s.signals[s.offset:end]
	s.offset = end
	return batch, nil
}

var _ Source = (*StoreSource)(nil)
