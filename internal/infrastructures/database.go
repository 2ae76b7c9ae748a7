package infrastructures

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectMaxElapsed = 30 * time.Second

func NewDatabase(config *AppConfig) *gorm.DB {
	var db *gorm.DB

	connect := func() error {
		conn, err := gorm.Open(postgres.Open(config.DATABASE_URL), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return err
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Ping(); err != nil {
			return err
		}

		db = conn
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectMaxElapsed
	notify := func(err error, next time.Duration) {
		logrus.Warnf("database not ready, retrying in %s: %v", next, err)
	}

	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}

	if config.AUTO_MIGRATE {
		if err := Migrate(db); err != nil {
			logrus.Fatalf("failed to migrate database: %v", err)
		}
	}

	return db
}

// Migrate creates or updates the coupon tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Coupon{},
		&models.CouponRedemption{},
		&models.AuditLog{},
	)
}
