package mappers

import (
	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/postgres/models"
)

func ToGORMSnapshot(snapshot *domain.TradeSnapshot) *models.TradeSnapshotModel {
	return &models.TradeSnapshotModel{
		TradeID:            snapshot.TradeID,
		OrderID:            snapshot.OrderID,
		Sequence:           snapshot.Sequence,
		Status:             snapshot.Status,
		Source:             string(snapshot.Source),
		TradeCreatedAt:     snapshot.CreatedAt,
		PaidAt:             snapshot.PaidAt,
		CancellationReason: snapshot.CancellationReason,
		AppealReason:       snapshot.AppealReason,
		AppealedBy:         snapshot.AppealedBy,
		AmountFiat:         snapshot.AmountFiat,
		AmountCrypto:       snapshot.AmountCrypto,
		Currency:           snapshot.Currency,
		CryptoRate:         snapshot.CryptoRate,
		ReceivedAt:         snapshot.ReceivedAt,
	}
}

func ToDomainSnapshot(model *models.TradeSnapshotModel) *domain.TradeSnapshot {
	return &domain.TradeSnapshot{
		TradeID:            model.TradeID,
		OrderID:            model.OrderID,
		Sequence:           model.Sequence,
		Status:             model.Status,
		Source:             domain.SnapshotSource(model.Source),
		CreatedAt:          model.TradeCreatedAt,
		PaidAt:             model.PaidAt,
		CancellationReason: model.CancellationReason,
		AppealReason:       model.AppealReason,
		AppealedBy:         model.AppealedBy,
		AmountFiat:         model.AmountFiat,
		AmountCrypto:       model.AmountCrypto,
		Currency:           model.Currency,
		CryptoRate:         model.CryptoRate,
		ReceivedAt:         model.ReceivedAt,
	}
}
