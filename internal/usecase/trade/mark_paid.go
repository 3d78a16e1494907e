package trade

import (
	"context"
	"log/slog"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
)

// MarkPaid marks the buyer's payment as sent. Legal only from PENDING.
// On success an optimistic BUYER_PAID snapshot with PaidAt = now is
// applied immediately, so the view and the appeal timer respond without
// waiting for the next poll; the authoritative response is then fetched
// promptly and reconciles through the ordinary acceptance filter. The
// optimistic snapshot carries a sequence of "now", which guarantees an
// older authoritative state cannot displace it.
func (c *Controller) MarkPaid(ctx context.Context) error {
	if err := c.checkAction(ActionMarkPaid); err != nil {
		return err
	}

	err := c.orders.MarkPaid(ctx, c.tradeID)
	c.metrics.RecordAction(string(ActionMarkPaid), err)
	if err != nil {
		slog.Error("mark-paid failed", "trade_id", c.tradeID, "error", err.Error())
		return err
	}

	now := c.clock()
	optimistic := *c.sync.Current()
	optimistic.Status = domain.StatusBuyerPaid
	optimistic.PaidAt = &now
	optimistic.Sequence = now.UnixMilli()
	optimistic.Source = domain.SourceOptimistic
	optimistic.ReceivedAt = now
	c.sync.Apply(&optimistic)

	c.sync.RefreshNow()
	return nil
}
