package signalsource

import (
	"context"
	"io"

	"signal-trade-lab/internal/domain"
)

// Source is a lazy, finite, forward-only producer of ordered signal
// batches. Next returns io.EOF once the stream is exhausted; a source
// cannot be re-read without a fresh fetch. Consumers must count signals
// from what they actually receive, never from an external hint.
type Source interface {
	Next(ctx context.Context) ([]*domain.Signal, error)
}

// Drain consumes a source to exhaustion, buffering every batch in arrival
// order. The buffered batches are immutable after return and safe for
// concurrent read-only fan-out, so one expensive paginated fetch can serve
// any number of independent consumers.
func Drain(ctx context.Context, src Source) ([][]*domain.Signal, error) {
	var batches [][]*domain.Signal
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := src.Next(ctx)
		if err == io.EOF {
			return batches, nil
		}
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			continue
		}
		batches = append(batches, batch)
	}
}
