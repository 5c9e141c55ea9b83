package database

import (
	"github.com/tripnest/booking-service/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs schema migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("running database migrations")

	if err := createExtensions(db); err != nil {
		logger.Error("failed to create extensions", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.Customer{},
		&model.TourPackage{},
		&model.HotelPackage{},
		&model.Booking{},
		&model.Guest{},
		&model.Transaction{},
		&model.SubscriptionPlan{},
		&model.Subscription{},
		&model.Payment{},
		&model.StripeWebhookEvent{},
	)
	if err != nil {
		logger.Error("failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("database migrations completed")
	return nil
}

func createExtensions(db *gorm.DB) error {
	// gen_random_uuid() needs pgcrypto on PostgreSQL < 13.
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// createCustomIndexes creates partial indexes GORM tags cannot express.
func createCustomIndexes(db *gorm.DB) error {
	// At most one ACTIVE subscription per customer. Historical rows keep
	// their terminal statuses, so the uniqueness is scoped by a predicate.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_active_subscription_per_customer ON subscriptions (customer_id) WHERE subscription_status = 'ACTIVE'`).Error; err != nil {
		return err
	}

	// Retry loop scan for unprocessed webhook events.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed ON stripe_webhook_events (created_at) WHERE status IN ('pending', 'failed')`).Error; err != nil {
		return err
	}

	return nil
}
