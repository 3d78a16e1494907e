package domain

import "context"

// OrderService is the narrow contract of the external order service:
// the poll source plus the four trade actions. Implementations are
// thin transport wrappers with no reconciliation logic of their own.
type OrderService interface {
	FetchTradeDetails(ctx context.Context, orderID, tradeID string) (*TradeSnapshot, error)
	MarkPaid(ctx context.Context, tradeID string) error
	Release(ctx context.Context, tradeID string) error
	Appeal(ctx context.Context, tradeID, reason string) error
	CancelAppeal(ctx context.Context, tradeID string) error
}

// Unsubscribe tears down a push subscription.
type Unsubscribe func()

// PushSource delivers trade snapshots asynchronously, with no delivery
// guarantee and possible duplicates; gaps are expected and recovered by
// polling. onReconnect signals "resume receiving, may have missed
// updates" and should trigger a refresh on the consumer side.
type PushSource interface {
	Subscribe(tradeID string, onSnapshot func(*TradeSnapshot), onReconnect func()) (Unsubscribe, error)
}

// SnapshotJournal records accepted snapshots for diagnostics. The
// synchronizer never reads journaled state back; losing journal writes
// must not affect reconciliation.
type SnapshotJournal interface {
	RecordSnapshot(ctx context.Context, snapshot *TradeSnapshot) error
	GetTradeJournal(ctx context.Context, tradeID string, page, limit int) ([]*TradeSnapshot, int64, error)
}
