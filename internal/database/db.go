package database

import (
	"fmt"
	"time"

	"go-biz-server/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the MySQL database and syncs the schema. The handle is
// returned to the caller instead of living in a package global, so every
// component gets its connection injected at startup.
func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	var db *gorm.DB
	var err error

	// Wait for the DB to be ready (docker-compose startup order)
	for i := 0; i < 5; i++ {
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			break
		}
		log.Warn("database not ready, retrying in 2 seconds", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect after 5 attempts: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("database connected and schema synced")
	return db, nil
}

// Migrate syncs the schema and seeds the fixed business units.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Business{},
		&models.Snack{},
		&models.Transaction{},
		&models.FarmRecord{},
		&models.PoolRecord{},
		&models.StationRecord{},
		&models.Expense{},
	)
	if err != nil {
		return err
	}
	return seedBusinesses(db)
}

// The four business units are fixed; expenses and the dashboard key off them.
func seedBusinesses(db *gorm.DB) error {
	for _, name := range []string{"Farm", "Pool", "PS Station", "Snack Center"} {
		if err := db.Where(models.Business{Name: name}).FirstOrCreate(&models.Business{Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}
