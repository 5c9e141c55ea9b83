package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tripnest/booking-service/internal/domain/model"
	"github.com/tripnest/booking-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentRepository {
	return &paymentRepository{db: db, logger: logger}
}

// Create appends a ledger row. The unique stripe_event_id index plus ON
// CONFLICT DO NOTHING turns a redelivered webhook event into a silent no-op,
// reported to the caller through created=false.
func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) (bool, error) {
	result := dbFrom(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_event_id"}},
			DoNothing: true,
		}).
		Create(payment)
	if result.Error != nil {
		r.logger.Error("failed to create payment",
			zap.String("subscription_id", payment.SubscriptionID.String()),
			zap.String("stripe_event_id", payment.StripeEventID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to create payment: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// CountConsecutiveFailures counts FAILED rows recorded after the most recent
// SUCCEEDED row. With no success on record, every failure counts.
func (r *paymentRepository) CountConsecutiveFailures(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	db := dbFrom(ctx, r.db)

	var lastSuccess model.Payment
	err := db.
		Where("subscription_id = ? AND status = ?", subscriptionID, model.PaymentStatusSucceeded).
		Order("created_at DESC").
		First(&lastSuccess).Error
	hasSuccess := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		r.logger.Error("failed to find last successful payment",
			zap.String("subscription_id", subscriptionID.String()),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count payment failures: %w", err)
	}

	query := db.
		Model(&model.Payment{}).
		Where("subscription_id = ? AND status = ?", subscriptionID, model.PaymentStatusFailed)
	if hasSuccess {
		query = query.Where("created_at > ?", lastSuccess.CreatedAt)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		r.logger.Error("failed to count payment failures",
			zap.String("subscription_id", subscriptionID.String()),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count payment failures: %w", err)
	}

	return count, nil
}

func (r *paymentRepository) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*model.Payment, error) {
	var payments []*model.Payment

	err := dbFrom(ctx, r.db).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		r.logger.Error("failed to list payments",
			zap.String("subscription_id", subscriptionID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, nil
}
