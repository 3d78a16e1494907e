package repository

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/postgres/models"
	"github.com/jaevor/go-nanoid"
	"gorm.io/gorm"
)

// DefaultSnapshotJournal stores every accepted snapshot for
// diagnostics. Write-only from the synchronizer's point of view.
type DefaultSnapshotJournal struct {
	db         *gorm.DB
	generateID func() string
}

func NewDefaultSnapshotJournal(db *gorm.DB) (*DefaultSnapshotJournal, error) {
	idGenerator, err := nanoid.Standard(15)
	if err != nil {
		return nil, err
	}
	return &DefaultSnapshotJournal{db: db, generateID: idGenerator}, nil
}

func (r *DefaultSnapshotJournal) RecordSnapshot(ctx context.Context, snapshot *domain.TradeSnapshot) error {
	model := mappers.ToGORMSnapshot(snapshot)
	model.ID = r.generateID()
	model.RecordedAt = time.Now()
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *DefaultSnapshotJournal) GetTradeJournal(ctx context.Context, tradeID string, page, limit int) ([]*domain.TradeSnapshot, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Model(&models.TradeSnapshotModel{}).Where("trade_id = ?", tradeID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var snapshotModels []models.TradeSnapshotModel
	if err := query.
		Order("received_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&snapshotModels).Error; err != nil {
		return nil, 0, err
	}

	snapshots := make([]*domain.TradeSnapshot, len(snapshotModels))
	for i := range snapshotModels {
		snapshots[i] = mappers.ToDomainSnapshot(&snapshotModels[i])
	}
	return snapshots, total, nil
}
