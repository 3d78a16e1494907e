package trade

import (
	"context"
	"log/slog"
)

// Release confirms receipt of payment and releases the escrowed funds.
// Legal only from BUYER_PAID. Funds movement requires authoritative
// confirmation, so no optimistic snapshot is applied: on success the
// confirmed state is fetched promptly, on failure nothing changes.
func (c *Controller) Release(ctx context.Context) error {
	if err := c.checkAction(ActionRelease); err != nil {
		return err
	}

	err := c.orders.Release(ctx, c.tradeID)
	c.metrics.RecordAction(string(ActionRelease), err)
	if err != nil {
		slog.Error("release failed", "trade_id", c.tradeID, "error", err.Error())
		return err
	}

	c.sync.RefreshNow()
	return nil
}
