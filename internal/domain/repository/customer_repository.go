package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripnest/booking-service/internal/domain/model"
)

type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	// SetSubscriptionStatus updates only the billing standing.
	SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status model.CustomerSubscriptionStatus) error
	// SetSubscriptionState updates billing standing and plan name together.
	SetSubscriptionState(ctx context.Context, id uuid.UUID, status model.CustomerSubscriptionStatus, planName string) error
	SetPlanName(ctx context.Context, id uuid.UUID, planName string) error
}
