package http

import (
	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/deadline"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/trade"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/tradesync"
)

type TradeView struct {
	TradeID       string                  `json:"trade_id"`
	OrderID       string                  `json:"order_id"`
	Snapshot      *SnapshotView           `json:"snapshot,omitempty"`
	Deadlines     deadline.Deadlines      `json:"deadlines"`
	LegalActions  []trade.Action          `json:"legal_actions"`
	Observability tradesync.Observability `json:"observability"`
}

type SnapshotView struct {
	Status             domain.TradeStatus    `json:"status"`
	Sequence           int64                 `json:"sequence"`
	Source             domain.SnapshotSource `json:"source"`
	CreatedAt          string                `json:"created_at"`
	PaidAt             string                `json:"paid_at,omitempty"`
	CancellationReason string                `json:"cancellation_reason,omitempty"`
	AppealReason       string                `json:"appeal_reason,omitempty"`
	AppealedBy         string                `json:"appealed_by,omitempty"`
	AmountFiat         float64               `json:"amount_fiat"`
	AmountCrypto       float64               `json:"amount_crypto"`
	Currency           string                `json:"currency"`
	CryptoRate         float64               `json:"crypto_rate"`
}

func snapshotView(s *domain.TradeSnapshot) *SnapshotView {
	if s == nil {
		return nil
	}
	view := &SnapshotView{
		Status:             s.Status,
		Sequence:           s.Sequence,
		Source:             s.Source,
		CreatedAt:          s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		CancellationReason: s.CancellationReason,
		AppealReason:       s.AppealReason,
		AppealedBy:         s.AppealedBy,
		AmountFiat:         s.AmountFiat,
		AmountCrypto:       s.AmountCrypto,
		Currency:           s.Currency,
		CryptoRate:         s.CryptoRate,
	}
	if s.PaidAt != nil {
		view.PaidAt = s.PaidAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return view
}

func tradeView(controller *trade.Controller) TradeView {
	legal := make([]trade.Action, 0, 4)
	for _, action := range []trade.Action{trade.ActionMarkPaid, trade.ActionRelease, trade.ActionAppeal, trade.ActionCancelAppeal} {
		if controller.IsActionLegal(action) {
			legal = append(legal, action)
		}
	}
	return TradeView{
		TradeID:       controller.TradeID(),
		OrderID:       controller.OrderID(),
		Snapshot:      snapshotView(controller.CurrentSnapshot()),
		Deadlines:     controller.Deadlines(),
		LegalActions:  legal,
		Observability: controller.Observability(),
	}
}
