package database

import (
	"fmt"

	"hrportal/internal/config"
	"hrportal/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection opens the PostgreSQL pool and migrates the schema
func NewConnection(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := Migrate(db); err != nil {
		log.Warn("Failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}

// Migrate creates or updates the tables for every persisted model
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.AuditLog{},
		&model.Document{},
		&model.OnboardingApplication{},
		&model.Notification{},
		&model.EmailJob{},
	)
}
