package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// WebhookStatus tracks processing of a stored webhook event.
type WebhookStatus string

const (
	WebhookStatusPending   WebhookStatus = "pending"
	WebhookStatusCompleted WebhookStatus = "completed"
	WebhookStatusFailed    WebhookStatus = "failed"
)

// JSONB represents a JSONB database type
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}

// StripeWebhookEvent stores every inbound webhook delivery. The unique
// StripeEventID makes redelivered events collapse onto one row, which is the
// backbone of handler idempotency.
type StripeWebhookEvent struct {
	ID                 int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	StripeEventID      string        `gorm:"uniqueIndex;size:255;not null" json:"stripe_event_id"`
	EventType          string        `gorm:"size:100;not null;index" json:"event_type"`
	Status             WebhookStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	Data               JSONB         `gorm:"type:jsonb" json:"data,omitempty"`
	ProcessingAttempts int           `gorm:"not null;default:0" json:"processing_attempts"`
	LastError          *string       `gorm:"type:text" json:"last_error,omitempty"`
	NextRetryAt        *time.Time    `json:"next_retry_at,omitempty"`
	ProcessedAt        *time.Time    `json:"processed_at,omitempty"`
	StripeCreatedAt    *time.Time    `json:"stripe_created_at,omitempty"`
	CreatedAt          time.Time     `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"default:now()" json:"updated_at"`
}

func (StripeWebhookEvent) TableName() string {
	return "stripe_webhook_events"
}
