package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus follows the remote payment intent lifecycle.
type TransactionStatus string

const (
	TransactionStatusRequiresPaymentMethod TransactionStatus = "REQUIRES_PAYMENT_METHOD"
	TransactionStatusProcessing            TransactionStatus = "PROCESSING"
	TransactionStatusSucceeded             TransactionStatus = "SUCCEEDED"
	TransactionStatusFailed                TransactionStatus = "FAILED"
)

func (s *TransactionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = TransactionStatus(v)
	case []byte:
		*s = TransactionStatus(v)
	default:
		*s = TransactionStatusProcessing
	}
	return nil
}

func (s TransactionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Terminal reports whether the status is final. Terminal transactions are
// append-only ledger entries and must never be rewritten.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusSucceeded || s == TransactionStatusFailed
}

// Transaction is a point-of-sale payment ledger entry tied to one booking.
type Transaction struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	BookingID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"booking_id"`
	CustomerID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"customer_id"`
	Amount          decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency        string            `gorm:"size:3;not null;default:'USD'" json:"currency"`
	PaymentMethodID string            `gorm:"uniqueIndex;size:255;not null" json:"payment_method_id"`
	Status          TransactionStatus `gorm:"size:30;not null" json:"status"`
	CreatedAt       time.Time         `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"default:now()" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
