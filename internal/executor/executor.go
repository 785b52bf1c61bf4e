package executor

import (
	"context"
	"log"

	"signal-trade-lab/internal/domain"
)

// Executor submits trade commands to a venue. Implementations are
// venue-specific adapters; retries and venue error handling live behind
// this boundary, not in the pipeline.
type Executor interface {
	// PlaceOrder submits a trade command for execution.
	PlaceOrder(ctx context.Context, cmd *domain.TradeCommand) error

	// CancelOrder cancels a previously placed order on a venue.
	CancelOrder(ctx context.Context, venue, orderID string) error
}

// DryRun logs commands instead of routing them to a venue. Used when a
// strategy runs with dry_run enabled.
type DryRun struct {
	logger *log.Logger
}

// NewDryRun creates a dry-run executor.
func NewDryRun(logger *log.Logger) *DryRun {
	return &DryRun{logger: logger}
}

// PlaceOrder logs the command and reports success.
func (d *DryRun) PlaceOrder(_ context.Context, cmd *domain.TradeCommand) error {
	if cmd.LimitPrice != nil {
		d.logger.Printf("dry-run: %s %s %s size=%g %s limit=%g id=%s",
			cmd.Side, cmd.Venue, cmd.MarketID, cmd.Size, cmd.OrderType, *cmd.LimitPrice, cmd.ID)
		return nil
	}
	d.logger.Printf("dry-run: %s %s %s size=%g %s id=%s",
		cmd.Side, cmd.Venue, cmd.MarketID, cmd.Size, cmd.OrderType, cmd.ID)
	return nil
}

// CancelOrder logs the cancellation and reports success.
func (d *DryRun) CancelOrder(_ context.Context, venue, orderID string) error {
	d.logger.Printf("dry-run: cancel %s on %s", orderID, venue)
	return nil
}

var _ Executor = (*DryRun)(nil)
