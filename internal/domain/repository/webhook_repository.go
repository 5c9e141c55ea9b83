package repository

import (
	"context"
	"encoding/json"

	"github.com/tripnest/booking-service/internal/domain/model"
)

// WebhookRepository stores inbound webhook deliveries for idempotency and
// operator visibility.
type WebhookRepository interface {
	SaveEvent(ctx context.Context, eventID, eventType string, data json.RawMessage) error
	GetEvent(ctx context.Context, eventID string) (*model.StripeWebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID string, err error) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.StripeWebhookEvent, error)
}
