package Models

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Aerofield/Config"
)

var DB *gorm.DB

// Connect opens the configured database and migrates the schema.
func Connect(cfg Config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	connection, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		// one writer at a time keeps transactions from failing with SQLITE_BUSY
		sqlDB, err := connection.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(connection); err != nil {
		return nil, err
	}
	DB = connection
	log.WithFields(log.Fields{"driver": cfg.Driver}).Info("database connected")
	return connection, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	// users first, the rest reference them by name or id only
	if err := db.AutoMigrate(&User{}, &DeviceToken{}); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	if err := db.AutoMigrate(
		&TaskRecord{},
		&ProgressRecord{},
		&RateRecord{},
		&DebtRecord{},
		&PaymentRecord{},
		&CashEntryRecord{},
	); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}
