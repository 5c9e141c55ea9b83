package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripnest/booking-service/internal/domain/model"
)

type PaymentRepository interface {
	// Create appends a ledger row. Inserting a row whose StripeEventID is
	// already recorded is a no-op and returns created=false, so redelivered
	// webhook events cannot double-count.
	Create(ctx context.Context, payment *model.Payment) (created bool, err error)
	// CountConsecutiveFailures counts FAILED rows recorded after the most
	// recent SUCCEEDED row for the subscription.
	CountConsecutiveFailures(ctx context.Context, subscriptionID uuid.UUID) (int64, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*model.Payment, error)
}
