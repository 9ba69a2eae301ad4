package database

import (
	"fmt"

	"finance-backend/internal/config"
	"finance-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init connects to Postgres, migrates the schema and stores the handle in DB.
func Init(cfg *config.Config) error {
	db, err := Open(postgres.Open(cfg.DatabaseDSN))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	logrus.Info("database connected, migration completed")
	return nil
}

// Open opens a gorm handle on any dialector. Tests pass an sqlite one.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.InstallmentExpense{},
		&models.Expense{},
		&models.RecurringExpense{},
		&models.PaidRecurringExpense{},
		&models.Asset{},
		&models.DividendCard{},
		&models.DividendItem{},
		&models.InvestmentCard{},
		&models.InvestmentItem{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
