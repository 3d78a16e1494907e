package trade

import (
	"context"
	"log/slog"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
)

const minAppealReasonLen = 10

// Appeal flags the trade for administrator review. Legal only from
// BUYER_PAID once the appeal window has elapsed. The reason is
// validated locally before any network call.
func (c *Controller) Appeal(ctx context.Context, reason string) error {
	if len([]rune(reason)) < minAppealReasonLen {
		return domain.ErrAppealReasonShort
	}
	if err := c.checkAction(ActionAppeal); err != nil {
		return err
	}

	err := c.orders.Appeal(ctx, c.tradeID, reason)
	c.metrics.RecordAction(string(ActionAppeal), err)
	if err != nil {
		slog.Error("appeal failed", "trade_id", c.tradeID, "error", err.Error())
		return err
	}

	now := c.clock()
	optimistic := *c.sync.Current()
	optimistic.Status = domain.StatusFlagged
	optimistic.AppealReason = reason
	optimistic.AppealedBy = c.party
	optimistic.Sequence = now.UnixMilli()
	optimistic.Source = domain.SourceOptimistic
	optimistic.ReceivedAt = now
	c.sync.Apply(&optimistic)

	c.sync.RefreshNow()
	return nil
}
