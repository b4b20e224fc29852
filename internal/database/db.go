package database

import (
	"lightmanager-backend/internal/config"
	"lightmanager-backend/internal/logger"
	"lightmanager-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logger.L().Fatal("could not connect to the database", zap.Error(err))
	}

	if err := Migrate(DB); err != nil {
		logger.L().Fatal("AutoMigrate failed", zap.Error(err))
	}

	logger.L().Info("database connected, migration complete")
}

// Migrate is shared with the in-memory test databases.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.ClientContact{},
		&models.ClientContract{},
		&models.Product{},
		&models.Order{},
		&models.OrderLine{},
		&models.OrderConditions{},
	)
}
