package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanInterval is the recurring billing interval of a plan.
type PlanInterval string

const (
	PlanIntervalMonth PlanInterval = "MONTH"
	PlanIntervalYear  PlanInterval = "YEAR"
)

// StripeInterval returns the interval in Stripe's lowercase form.
func (i PlanInterval) StripeInterval() string {
	switch i {
	case PlanIntervalYear:
		return "year"
	default:
		return "month"
	}
}

// PlanStatus marks whether a plan can be subscribed to.
type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "ACTIVE"
	PlanStatusInactive PlanStatus = "INACTIVE"
)

// SubscriptionPlan is a locally defined recurring plan. Paid plans carry a
// reference to the remote Stripe price; FREE plans never do.
type SubscriptionPlan struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PlanName        string          `gorm:"uniqueIndex;size:50;not null" json:"plan_name"`
	Description     string          `gorm:"size:500" json:"description"`
	Plan            PlanInterval    `gorm:"size:10;not null;default:'MONTH'" json:"plan"`
	Price           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	TrialPeriodDays int64           `gorm:"not null;default:0" json:"trial_period_days"`
	StripePriceID   *string         `gorm:"size:255" json:"stripe_price_id,omitempty"`
	Status          PlanStatus      `gorm:"size:20;not null;default:'ACTIVE'" json:"status"`
	CreatedAt       time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"default:now()" json:"updated_at"`
}

// IsFree reports whether the plan bills nothing and needs no remote price.
func (p *SubscriptionPlan) IsFree() bool {
	return p.PlanName == FreePlanName
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}
