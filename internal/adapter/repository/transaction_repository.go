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

type transactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTransactionRepository(db *gorm.DB, logger *zap.Logger) repository.TransactionRepository {
	return &transactionRepository{db: db, logger: logger}
}

func (r *transactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	if err := dbFrom(ctx, r.db).Create(txn).Error; err != nil {
		r.logger.Error("failed to create transaction",
			zap.String("booking_id", txn.BookingID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByIntentID(ctx context.Context, intentID string) (*model.Transaction, error) {
	var txn model.Transaction

	err := dbFrom(ctx, r.db).
		Where("payment_method_id = ?", intentID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("failed to get transaction",
			zap.String("intent_id", intentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &txn, nil
}

func (r *transactionRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*model.Transaction, error) {
	var txns []*model.Transaction

	err := dbFrom(ctx, r.db).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&txns).Error
	if err != nil {
		r.logger.Error("failed to list transactions",
			zap.String("booking_id", bookingID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txns, nil
}

// SetStatusByIntentID settles a transaction. Terminal rows are excluded in
// the WHERE clause so a redelivered or out-of-order event cannot rewrite a
// final outcome.
func (r *transactionRepository) SetStatusByIntentID(ctx context.Context, intentID string, status model.TransactionStatus) error {
	result := dbFrom(ctx, r.db).
		Model(&model.Transaction{}).
		Where("payment_method_id = ? AND status NOT IN (?, ?)",
			intentID,
			model.TransactionStatusSucceeded,
			model.TransactionStatusFailed).
		Update("status", status)
	if result.Error != nil {
		r.logger.Error("failed to update transaction status",
			zap.String("intent_id", intentID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Info("transaction already terminal or unknown, nothing to do",
			zap.String("intent_id", intentID),
			zap.String("status", string(status)))
	}
	return nil
}
