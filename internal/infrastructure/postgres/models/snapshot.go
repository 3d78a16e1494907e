package models

import (
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
)

type TradeSnapshotModel struct {
	ID                 string             `gorm:"primaryKey"`
	TradeID            string             `gorm:"index:idx_trade_received"`
	OrderID            string             `gorm:"index"`
	Sequence           int64              `gorm:"index"`
	Status             domain.TradeStatus `gorm:"index"`
	Source             string
	TradeCreatedAt     time.Time
	PaidAt             *time.Time
	CancellationReason string
	AppealReason       string
	AppealedBy         string
	AmountFiat         float64
	AmountCrypto       float64
	Currency           string
	CryptoRate         float64
	ReceivedAt         time.Time `gorm:"index:idx_trade_received"`
	RecordedAt         time.Time
}
