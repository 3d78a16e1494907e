package postgres

import (
	"log"

	"github.com/LavaJover/shvark-trade-client/internal/config"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func MustInitDB(cfg *config.TradeClientConfig) *gorm.DB {
	dsn := cfg.JournalDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	db.AutoMigrate(&models.TradeSnapshotModel{})

	return db
}
