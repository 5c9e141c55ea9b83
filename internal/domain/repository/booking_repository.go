package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripnest/booking-service/internal/domain/model"
)

type BookingRepository interface {
	// Create persists the booking together with its guests.
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// MarkSettled flips the booking to ACTIVE and paid. Idempotent.
	MarkSettled(ctx context.Context, id uuid.UUID) error
	// MarkPaymentFailed flips the booking to CANCELLED. Idempotent.
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) error
	// Cancel records a customer cancellation with its reason.
	Cancel(ctx context.Context, id uuid.UUID, reason string) error
}

type ResourceRepository interface {
	// Get loads the reservable resource for the given kind.
	Get(ctx context.Context, kind model.ResourceKind, id uuid.UUID) (model.Reservable, error)
}
