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

type customerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCustomerRepository(db *gorm.DB, logger *zap.Logger) repository.CustomerRepository {
	return &customerRepository{db: db, logger: logger}
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer

	err := dbFrom(ctx, r.db).
		Where("id = ?", id).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("failed to get customer",
			zap.String("customer_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}

func (r *customerRepository) SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status model.CustomerSubscriptionStatus) error {
	result := dbFrom(ctx, r.db).
		Model(&model.Customer{}).
		Where("id = ?", id).
		Update("subscription_status", status)
	if result.Error != nil {
		r.logger.Error("failed to update customer subscription status",
			zap.String("customer_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update customer subscription status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("customer not found: %s", id)
	}
	return nil
}

func (r *customerRepository) SetSubscriptionState(ctx context.Context, id uuid.UUID, status model.CustomerSubscriptionStatus, planName string) error {
	result := dbFrom(ctx, r.db).
		Model(&model.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_status": status,
			"plan_name":           planName,
		})
	if result.Error != nil {
		r.logger.Error("failed to update customer subscription state",
			zap.String("customer_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update customer subscription state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("customer not found: %s", id)
	}
	return nil
}

func (r *customerRepository) SetPlanName(ctx context.Context, id uuid.UUID, planName string) error {
	result := dbFrom(ctx, r.db).
		Model(&model.Customer{}).
		Where("id = ?", id).
		Update("plan_name", planName)
	if result.Error != nil {
		r.logger.Error("failed to update customer plan name",
			zap.String("customer_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update customer plan name: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("customer not found: %s", id)
	}
	return nil
}
