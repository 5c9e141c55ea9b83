package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripnest/booking-service/internal/domain/model"
)

type PlanRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.SubscriptionPlan, error)
	GetByName(ctx context.Context, planName string) (*model.SubscriptionPlan, error)
	Create(ctx context.Context, plan *model.SubscriptionPlan) error
	ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error)
}
