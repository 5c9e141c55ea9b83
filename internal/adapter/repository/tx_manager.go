package repository

import (
	"context"

	"github.com/tripnest/booking-service/internal/domain/repository"
	"gorm.io/gorm"
)

type txKey struct{}

// TxManager runs functions inside a gorm transaction. The transaction handle
// travels in the context, so repositories called within fn automatically
// join it without any change to their signatures.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) repository.TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom returns the transaction bound to ctx, or the fallback connection.
func dbFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
