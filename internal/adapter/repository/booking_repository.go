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
)

type bookingRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewBookingRepository(db *gorm.DB, logger *zap.Logger) repository.BookingRepository {
	return &bookingRepository{db: db, logger: logger}
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	// Guests are persisted in the same insert through the association.
	if err := dbFrom(ctx, r.db).Create(booking).Error; err != nil {
		r.logger.Error("failed to create booking",
			zap.String("customer_id", booking.CustomerID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking

	err := dbFrom(ctx, r.db).
		Preload("Guests").
		Preload("Transactions").
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("failed to get booking",
			zap.String("booking_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

// MarkSettled activates a booking once its payment lands. The WHERE clause
// excludes rows already settled or cancelled, so a redelivered event updates
// nothing.
func (r *bookingRepository) MarkSettled(ctx context.Context, id uuid.UUID) error {
	result := dbFrom(ctx, r.db).
		Model(&model.Booking{}).
		Where("id = ? AND status = ?", id, model.BookingStatusPending).
		Updates(map[string]interface{}{
			"status":  model.BookingStatusActive,
			"is_paid": true,
		})
	if result.Error != nil {
		r.logger.Error("failed to settle booking",
			zap.String("booking_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to settle booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Info("booking already settled or not pending, nothing to do",
			zap.String("booking_id", id.String()))
	}
	return nil
}

func (r *bookingRepository) MarkPaymentFailed(ctx context.Context, id uuid.UUID) error {
	result := dbFrom(ctx, r.db).
		Model(&model.Booking{}).
		Where("id = ? AND status = ?", id, model.BookingStatusPending).
		Updates(map[string]interface{}{
			"status":        model.BookingStatusCancelled,
			"is_cancelled":  true,
			"cancel_reason": "payment failed",
		})
	if result.Error != nil {
		r.logger.Error("failed to mark booking payment failed",
			zap.String("booking_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark booking payment failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Info("booking not pending, nothing to do",
			zap.String("booking_id", id.String()))
	}
	return nil
}

func (r *bookingRepository) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	result := dbFrom(ctx, r.db).
		Model(&model.Booking{}).
		Where("id = ? AND is_cancelled = ?", id, false).
		Updates(map[string]interface{}{
			"status":        model.BookingStatusCancelled,
			"is_cancelled":  true,
			"cancel_reason": reason,
		})
	if result.Error != nil {
		r.logger.Error("failed to cancel booking",
			zap.String("booking_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to cancel booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("booking not found or already cancelled: %s", id)
	}
	return nil
}
