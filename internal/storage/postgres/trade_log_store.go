package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"signal-trade-lab/internal/domain"
	"signal-trade-lab/internal/storage"
)

// TradeLogStore implements storage.TradeLogStore using PostgreSQL.
type TradeLogStore struct {
	pool *Pool
}

// NewTradeLogStore creates a new TradeLogStore.
func NewTradeLogStore(pool *Pool) *TradeLogStore {
	return &TradeLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// InsertBulk adds a run's traced commands atomically. Fails entire batch on
// any duplicate (run_id, command_id). The seq column preserves processing order.
func (s *TradeLogStore) InsertBulk(ctx context.Context, runID string, entries []*domain.TracedCommand) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var startSeq int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM trade_log WHERE run_id = $1`, runID,
	).Scan(&startSeq)
	if err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	query := `
		INSERT INTO trade_log (
			run_id, seq, command_id, command_type,
			market_id, venue, side, action, size, order_type, limit_price,
			signal_id, leg, triggered_at, payload
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15
		)
	`

	for i, e := range entries {
		if e == nil || e.Command == nil || e.Command.ID == "" {
			return storage.ErrInvalidInput
		}

		var payload []byte
		if e.Payload != nil {
			payload, err = json.Marshal(e.Payload)
			if err != nil {
				return fmt.Errorf("marshal payload: %w", err)
			}
		}

		cmd := e.Command
		_, err := tx.Exec(ctx, query,
			runID, startSeq+int64(i), cmd.ID, cmd.Type,
			cmd.MarketID, cmd.Venue, string(cmd.Side), string(cmd.Action),
			cmd.Size, string(cmd.OrderType), cmd.LimitPrice,
			e.SignalID, e.Leg, e.TriggeredAt, payload,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade log entry in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves a run's trace in its original processing order.
// Returns ErrNotFound if the run has no entries.
func (s *TradeLogStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TracedCommand, error) {
	query := `
		SELECT
			command_id, command_type,
			market_id, venue, side, action, size, order_type, limit_price,
			signal_id, leg, triggered_at, payload
		FROM trade_log
		WHERE run_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query trade log by run id: %w", err)
	}
	defer rows.Close()

	var entries []*domain.TracedCommand
	for rows.Next() {
		var (
			cmd        domain.TradeCommand
			side       string
			action     string
			orderType  string
			entry      domain.TracedCommand
			rawPayload []byte
		)

		err := rows.Scan(
			&cmd.ID, &cmd.Type,
			&cmd.MarketID, &cmd.Venue, &side, &action, &cmd.Size, &orderType, &cmd.LimitPrice,
			&entry.SignalID, &entry.Leg, &entry.TriggeredAt, &rawPayload,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade log entry: %w", err)
		}

		cmd.Side = domain.Side(side)
		cmd.Action = domain.Action(action)
		cmd.OrderType = domain.OrderType(orderType)

		if len(rawPayload) > 0 {
			var p domain.ArbitragePayload
			if err := json.Unmarshal(rawPayload, &p); err != nil {
				return nil, fmt.Errorf("unmarshal payload: %w", err)
			}
			entry.Payload = &p
		}

		entry.Command = &cmd
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade log rows: %w", err)
	}

	if len(entries) == 0 {
		return nil, storage.ErrNotFound
	}

	return entries, nil
}
