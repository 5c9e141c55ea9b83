package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the lifecycle state of a local subscription row.
// Transitions only move forward: PENDING -> ACTIVE -> {PAST_DUE <-> ACTIVE}
// -> {CANCELLED | EXPIRED}.
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "PENDING"
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusExpired
	}
	return nil
}

func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Terminal reports whether the status may never change again.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

// Subscription is the local record of a recurring billing agreement. At most
// one ACTIVE row exists per customer; historical rows persist, so the
// invariant is enforced by the application rather than a plain unique index.
type Subscription struct {
	ID                   uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CustomerID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"customer_id"`
	SubscriptionPlanID   uuid.UUID          `gorm:"type:uuid;not null" json:"subscription_plan_id"`
	SubscriptionStatus   SubscriptionStatus `gorm:"size:20;not null;default:'PENDING'" json:"subscription_status"`
	StripeCustomerID     string             `gorm:"size:255" json:"stripe_customer_id"`
	StripeSubscriptionID *string            `gorm:"uniqueIndex;size:255" json:"stripe_subscription_id,omitempty"`
	ExpiresAt            *time.Time         `json:"expires_at,omitempty"`
	CancelRequest        bool               `gorm:"not null;default:false" json:"cancel_request"`
	CreatedAt            time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt            time.Time          `gorm:"default:now()" json:"updated_at"`

	// Relations
	Plan     *SubscriptionPlan `gorm:"foreignKey:SubscriptionPlanID" json:"plan,omitempty"`
	Customer *Customer         `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
