package trade

import (
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/deadline"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/tradesync"
)

type Action string

const (
	ActionMarkPaid     Action = "mark_paid"
	ActionRelease      Action = "release"
	ActionAppeal       Action = "appeal"
	ActionCancelAppeal Action = "cancel_appeal"
)

// Controller is the per-trade façade consumed by the UI layer: current
// state, current deadlines and the four legal trade actions. It is the
// only component that executes user actions and the only writer of
// optimistic snapshots.
type Controller struct {
	tradeID string
	orderID string
	party   string

	orders  domain.OrderService
	sync    *tradesync.Synchronizer
	metrics *metrics.TradeSyncMetrics
	clock   func() time.Time
}

func NewController(
	tradeID, orderID, party string,
	orders domain.OrderService,
	sync *tradesync.Synchronizer,
	syncMetrics *metrics.TradeSyncMetrics) *Controller {

	return &Controller{
		tradeID: tradeID,
		orderID: orderID,
		party:   party,
		orders:  orders,
		sync:    sync,
		metrics: syncMetrics,
		clock:   time.Now,
	}
}

// SetClock replaces the wall clock. Test hook.
func (c *Controller) SetClock(clock func() time.Time) {
	c.clock = clock
}

func (c *Controller) TradeID() string { return c.tradeID }
func (c *Controller) OrderID() string { return c.orderID }

func (c *Controller) CurrentSnapshot() *domain.TradeSnapshot {
	return c.sync.Current()
}

func (c *Controller) Deadlines() deadline.Deadlines {
	return deadline.Compute(c.sync.Current(), c.clock())
}

func (c *Controller) Observability() tradesync.Observability {
	return c.sync.Observability()
}

func (c *Controller) AddListener(l tradesync.Listener) func() {
	return c.sync.AddListener(l)
}

func (c *Controller) RefreshNow() {
	c.sync.RefreshNow()
}

// IsActionLegal reports whether the action's precondition holds in the
// current state, without touching the network.
func (c *Controller) IsActionLegal(action Action) bool {
	return c.checkAction(action) == nil
}

// checkAction validates an action's precondition against the current
// snapshot. Every action path runs through this before any network
// call, which also makes retried or duplicated calls safe: once the
// first application moves the state on, the repeat fails the check.
func (c *Controller) checkAction(action Action) error {
	snapshot := c.sync.Current()
	if snapshot == nil {
		return domain.ErrTradeNotFound
	}
	if snapshot.Status.IsTerminal() {
		return domain.ErrTradeClosed
	}

	switch action {
	case ActionMarkPaid:
		if snapshot.Status != domain.StatusPending {
			return domain.ErrIllegalAction
		}
	case ActionRelease:
		if snapshot.Status != domain.StatusBuyerPaid {
			return domain.ErrIllegalAction
		}
	case ActionAppeal:
		if snapshot.Status != domain.StatusBuyerPaid {
			return domain.ErrIllegalAction
		}
		if !deadline.AppealOpen(snapshot, c.clock()) {
			return domain.ErrAppealTooEarly
		}
	case ActionCancelAppeal:
		if snapshot.Status != domain.StatusFlagged {
			return domain.ErrIllegalAction
		}
		if snapshot.AppealedBy != "" && snapshot.AppealedBy != c.party {
			return domain.ErrNotAppealingParty
		}
	default:
		return domain.ErrIllegalAction
	}
	return nil
}
