package trade

import (
	"context"
	"log/slog"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
)

// CancelAppeal withdraws a raised appeal, returning the trade to
// BUYER_PAID. Legal only from FLAGGED and only for the party that
// raised the appeal.
func (c *Controller) CancelAppeal(ctx context.Context) error {
	if err := c.checkAction(ActionCancelAppeal); err != nil {
		return err
	}

	err := c.orders.CancelAppeal(ctx, c.tradeID)
	c.metrics.RecordAction(string(ActionCancelAppeal), err)
	if err != nil {
		slog.Error("cancel-appeal failed", "trade_id", c.tradeID, "error", err.Error())
		return err
	}

	now := c.clock()
	optimistic := *c.sync.Current()
	optimistic.Status = domain.StatusBuyerPaid
	optimistic.AppealReason = ""
	optimistic.AppealedBy = ""
	optimistic.Sequence = now.UnixMilli()
	optimistic.Source = domain.SourceOptimistic
	optimistic.ReceivedAt = now
	c.sync.Apply(&optimistic)

	c.sync.RefreshNow()
	return nil
}
