package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tripnest/booking-service/internal/domain/model"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error
	GetByIntentID(ctx context.Context, intentID string) (*model.Transaction, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*model.Transaction, error)
	// SetStatusByIntentID settles a transaction. Rows already in a terminal
	// state are left untouched, keeping the ledger append-only.
	SetStatusByIntentID(ctx context.Context, intentID string, status model.TransactionStatus) error
}
