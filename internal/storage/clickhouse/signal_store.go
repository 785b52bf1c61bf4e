package clickhouse

import (
	"context"
	"fmt"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/storage"
)

// SignalStore implements storage.SignalStore using ClickHouse.
// Signals are append-only; MergeTree does not enforce uniqueness, so
// duplicates are rejected by explicit checks before insert.
type SignalStore struct {
	conn *Conn
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(conn *Conn) *SignalStore {
	return &SignalStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// InsertBulk adds multiple signals. Fails entire batch on any duplicate id.
func (s *SignalStore) InsertBulk(ctx context.Context, signals []*domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(signals))
	for _, sig := range signals {
		if sig == nil || sig.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[sig.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[sig.ID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, sig := range signals {
		exists, err := s.exists(ctx, sig.ID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO signals (
			id, signal_type, signal_name, market_id, venue,
			base_currency, quote_currency, created_at, triggered_at,
			description, payload
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sig := range signals {
		err = batch.Append(
			sig.ID, string(sig.SignalType), sig.SignalName, sig.MarketID, sig.Venue,
			sig.BaseCurrency, sig.QuoteCurrency, sig.CreatedAt, sig.TriggeredAt,
			sig.Description, string(sig.Payload),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves signals triggered within [start, end] (inclusive),
// ordered by triggered_at ASC then id ASC.
func (s *SignalStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Signal, error) {
	query := `
		SELECT id, signal_type, signal_name, market_id, venue,
		       base_currency, quote_currency, created_at, triggered_at,
		       description, payload
		FROM signals
		WHERE triggered_at >= ? AND triggered_at <= ?
		ORDER BY triggered_at ASC, id ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	var signals []*domain.Signal
	for rows.Next() {
		var (
			sig        domain.Signal
			signalType string
			payload    string
		)

		err := rows.Scan(
			&sig.ID, &signalType, &sig.SignalName, &sig.MarketID, &sig.Venue,
			&sig.BaseCurrency, &sig.QuoteCurrency, &sig.CreatedAt, &sig.TriggeredAt,
			&sig.Description, &payload,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}

		sig.SignalType = domain.SignalType(signalType)
		if payload != "" {
			sig.Payload = []byte(payload)
		}

		signals = append(signals, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}

// exists checks if a signal with the given id exists.
func (s *SignalStore) exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT count(*) FROM signals WHERE id = ?`

	var count uint64
	err := s.conn.QueryRow(ctx, query, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
