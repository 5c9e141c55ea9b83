package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the outcome recorded on a subscription payment row.
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		*s = PaymentStatusFailed
	}
	return nil
}

func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Payment is an append-only subscription billing ledger row. StripeEventID
// is unique so redelivered webhook events cannot duplicate entries, and the
// consecutive-failure count is derived from these rows rather than from
// remote metadata round-trips.
type Payment struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CustomerID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	SubscriptionID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"subscription_id"`
	SubscriptionPlanID uuid.UUID       `gorm:"type:uuid;not null" json:"subscription_plan_id"`
	Amount             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency           string          `gorm:"size:3;not null" json:"currency"`
	PaymentDate        time.Time       `gorm:"not null" json:"payment_date"`
	Status             PaymentStatus   `gorm:"size:20;not null" json:"status"`
	StripeEventID      string          `gorm:"uniqueIndex;size:255;not null" json:"stripe_event_id"`
	CreatedAt          time.Time       `gorm:"default:now()" json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
