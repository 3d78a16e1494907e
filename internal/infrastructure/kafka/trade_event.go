package kafka

import (
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/deadline"
)

// TradeEvent is the push-side update payload. Events may be partial
// deltas; they are normalized to full snapshots here and reconciled by
// the acceptance filter, so duplicates and gaps are harmless.
type TradeEvent struct {
	TradeID            string  `json:"trade_id"`
	OrderID            string  `json:"order_id"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"created_at"`
	CreateTime         string  `json:"create_time"`
	UpdatedAt          string  `json:"updated_at"`
	PaidAt             string  `json:"paid_at"`
	CancellationReason string  `json:"cancellation_reason"`
	AppealReason       string  `json:"appeal_reason"`
	AppealedBy         string  `json:"appealed_by"`
	AmountFiat         float64 `json:"amount_fiat"`
	AmountCrypto       float64 `json:"amount_crypto"`
	Currency           string  `json:"currency"`
	CryptoRate         float64 `json:"crypto_rate"`
}

func (e *TradeEvent) ToSnapshot(receivedAt time.Time) *domain.TradeSnapshot {
	snapshot := &domain.TradeSnapshot{
		TradeID:            e.TradeID,
		OrderID:            e.OrderID,
		Status:             domain.TradeStatus(e.Status),
		CreatedAt:          deadline.ResolveCreatedAt(e.CreatedAt, e.CreateTime, receivedAt),
		CancellationReason: e.CancellationReason,
		AppealReason:       e.AppealReason,
		AppealedBy:         e.AppealedBy,
		AmountFiat:         e.AmountFiat,
		AmountCrypto:       e.AmountCrypto,
		Currency:           e.Currency,
		CryptoRate:         e.CryptoRate,
		Source:             domain.SourcePush,
		ReceivedAt:         receivedAt,
	}
	snapshot.Sequence = receivedAt.UnixMilli()
	if updatedAt, err := time.Parse(time.RFC3339, e.UpdatedAt); err == nil && updatedAt.After(receivedAt) {
		snapshot.Sequence = updatedAt.UnixMilli()
	}
	if paidAt, err := time.Parse(time.RFC3339, e.PaidAt); err == nil {
		snapshot.PaidAt = &paidAt
	}
	return snapshot
}
