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

type planRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPlanRepository(db *gorm.DB, logger *zap.Logger) repository.PlanRepository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan

	err := dbFrom(ctx, r.db).
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("failed to get plan",
			zap.String("plan_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return &plan, nil
}

func (r *planRepository) GetByName(ctx context.Context, planName string) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan

	err := dbFrom(ctx, r.db).
		Where("plan_name = ?", planName).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("failed to get plan by name",
			zap.String("plan_name", planName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return &plan, nil
}

func (r *planRepository) Create(ctx context.Context, plan *model.SubscriptionPlan) error {
	if err := dbFrom(ctx, r.db).Create(plan).Error; err != nil {
		r.logger.Error("failed to create plan",
			zap.String("plan_name", plan.PlanName),
			zap.Error(err))
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *planRepository) ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	var plans []*model.SubscriptionPlan

	err := dbFrom(ctx, r.db).
		Where("status = ?", model.PlanStatusActive).
		Find(&plans).Error
	if err != nil {
		r.logger.Error("failed to list plans", zap.Error(err))
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	return plans, nil
}
