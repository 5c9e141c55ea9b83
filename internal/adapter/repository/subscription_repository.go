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

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription

	err := dbFrom(ctx, r.db).
		Preload("Plan").
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("failed to get subscription",
			zap.String("subscription_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription

	err := dbFrom(ctx, r.db).
		Preload("Plan").
		Where("customer_id = ? AND subscription_status = ?", customerID, model.SubscriptionStatusActive).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("failed to get active subscription",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetFirstByCustomer(ctx context.Context, customerID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription

	err := dbFrom(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("failed to get subscription by customer",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error) {
	var sub model.Subscription

	err := dbFrom(ctx, r.db).
		Preload("Plan").
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("failed to get subscription by stripe id",
			zap.String("stripe_subscription_id", stripeSubscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	if err := dbFrom(ctx, r.db).Create(sub).Error; err != nil {
		r.logger.Error("failed to create subscription",
			zap.String("customer_id", sub.CustomerID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *model.Subscription) error {
	result := dbFrom(ctx, r.db).
		Model(&model.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"subscription_status":    sub.SubscriptionStatus,
			"subscription_plan_id":   sub.SubscriptionPlanID,
			"stripe_customer_id":     sub.StripeCustomerID,
			"stripe_subscription_id": sub.StripeSubscriptionID,
			"expires_at":             sub.ExpiresAt,
			"cancel_request":         sub.CancelRequest,
		})
	if result.Error != nil {
		r.logger.Error("failed to update subscription",
			zap.String("subscription_id", sub.ID.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", sub.ID)
	}
	return nil
}

func (r *subscriptionRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus) error {
	result := dbFrom(ctx, r.db).
		Model(&model.Subscription{}).
		Where("id = ?", id).
		Update("subscription_status", status)
	if result.Error != nil {
		r.logger.Error("failed to update subscription status",
			zap.String("subscription_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", id)
	}
	return nil
}

func (r *subscriptionRepository) SetCancelRequest(ctx context.Context, id uuid.UUID, requested bool) error {
	result := dbFrom(ctx, r.db).
		Model(&model.Subscription{}).
		Where("id = ?", id).
		Update("cancel_request", requested)
	if result.Error != nil {
		r.logger.Error("failed to update cancel request flag",
			zap.String("subscription_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update cancel request flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", id)
	}
	return nil
}

func (r *subscriptionRepository) ListActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	err := dbFrom(ctx, r.db).
		Preload("Plan").
		Where("customer_id = ? AND subscription_status = ?", customerID, model.SubscriptionStatusActive).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		r.logger.Error("failed to list subscriptions",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}

func (r *subscriptionRepository) ListAll(ctx context.Context) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	err := dbFrom(ctx, r.db).
		Preload("Plan").
		Preload("Customer").
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		r.logger.Error("failed to list all subscriptions", zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}
