package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripnest/booking-service/internal/domain/model"
)

type SubscriptionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	// GetActiveByCustomer returns the single ACTIVE subscription, nil if none.
	GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*model.Subscription, error)
	// GetFirstByCustomer returns any prior row regardless of status, nil if
	// the customer never subscribed. Used to reuse the remote billing
	// customer identity and to upsert from webhook events.
	GetFirstByCustomer(ctx context.Context, customerID uuid.UUID) (*model.Subscription, error)
	GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error)
	Create(ctx context.Context, sub *model.Subscription) error
	// Update rewrites the mutable reconciliation fields (status, expiry,
	// remote ids, plan, cancel flag) of an existing row.
	Update(ctx context.Context, sub *model.Subscription) error
	SetStatus(ctx context.Context, id uuid.UUID, status model.SubscriptionStatus) error
	SetCancelRequest(ctx context.Context, id uuid.UUID, requested bool) error
	ListActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.Subscription, error)
	ListAll(ctx context.Context) ([]*model.Subscription, error)
}
