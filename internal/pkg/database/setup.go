package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/PaddleSync/app/models"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DSN builds the go-sql-driver DSN for cfg. Times are read and written in UTC.
func DSN(cfg config.Database) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
}

// MigrationURL builds the golang-migrate URL for cfg.
func MigrationURL(cfg config.Database) string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
}

// Open connects to dsn. Datetime precision stays enabled because the event
// ordering guards compare sub-second provider timestamps.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(mysql.New(mysql.Config{
		DSN:                       dsn,
		DefaultStringSize:         256,
		DisableDatetimePrecision:  false,
		DontSupportRenameIndex:    true,
		DontSupportRenameColumn:   true,
		SkipInitializeWithVersion: false,
	}), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
}

// SetupDatabase connects with retries and migrates the pipeline tables.
func SetupDatabase(cfg config.Database) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	dsn := DSN(cfg)

	for i := 0; i < maxRetries; i++ {
		db, err = Open(dsn)
		if err == nil {
			if err = AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
			log.Infof("[Database] Connected to %s@%s:%s/%s", cfg.User, cfg.Host, cfg.Port, cfg.Name)
			return db, nil
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("[Database] Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}
	return nil, err
}

// AutoMigrate creates or updates the tables owned by the webhook pipeline.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.BillingWebhookEvent{},
		&models.BillingSubscription{},
		&models.WebhookRetryEntry{},
		&models.AdminAuditLog{},
	)
}
