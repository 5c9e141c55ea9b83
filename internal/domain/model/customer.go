package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the standing of a customer account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusInactive  AccountStatus = "INACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusBlocked   AccountStatus = "BLOCKED"
)

// CustomerSubscriptionStatus mirrors the customer's billing standing.
type CustomerSubscriptionStatus string

const (
	CustomerSubscriptionPending CustomerSubscriptionStatus = "PENDING"
	CustomerSubscriptionActive  CustomerSubscriptionStatus = "ACTIVE"
	CustomerSubscriptionExpired CustomerSubscriptionStatus = "EXPIRED"
)

// FreePlanName is the plan customers fall back to when billing lapses.
const FreePlanName = "FREE"

func (s *CustomerSubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = CustomerSubscriptionStatus(v)
	case []byte:
		*s = CustomerSubscriptionStatus(v)
	default:
		*s = CustomerSubscriptionExpired
	}
	return nil
}

func (s CustomerSubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Customer owns bookings and at most one active subscription.
type Customer struct {
	ID                 uuid.UUID                  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	FirstName          string                     `gorm:"size:100;not null" json:"first_name"`
	LastName           string                     `gorm:"size:100;not null" json:"last_name"`
	Email              string                     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Status             AccountStatus              `gorm:"size:20;not null;default:'ACTIVE'" json:"status"`
	SubscriptionStatus CustomerSubscriptionStatus `gorm:"size:20;not null;default:'EXPIRED'" json:"subscription_status"`
	PlanName           string                     `gorm:"size:50;not null;default:'FREE'" json:"plan_name"`
	CreatedAt          time.Time                  `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time                  `gorm:"default:now()" json:"updated_at"`
}

// InGoodStanding reports whether the account may start new billing operations.
func (c *Customer) InGoodStanding() bool {
	switch c.Status {
	case AccountStatusSuspended, AccountStatusBlocked, AccountStatusInactive:
		return false
	}
	return true
}

func (Customer) TableName() string {
	return "customers"
}
