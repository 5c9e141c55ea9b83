package gateway

import (
	"context"

	"github.com/stripe/stripe-go/v79"
)

// PaymentGateway wraps the remote payment processor. The webhook path is the
// source of truth for settlement; synchronous callers treat every response
// here as provisional.
type PaymentGateway interface {
	// Payment intents (point-of-sale charges)
	CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*stripe.PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethodID string) (*stripe.PaymentIntent, error)
	// CancelPaymentIntent is the compensating action for a failed booking
	// flow; it leaves the intent unconfirmable.
	CancelPaymentIntent(ctx context.Context, intentID string) error

	// Billing customers
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*stripe.Customer, error)

	// Remote subscriptions
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*stripe.Subscription, error)
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, req UpdateSubscriptionRequest) (*stripe.Subscription, error)
	// CancelSubscriptionAtPeriodEnd performs a soft cancel.
	CancelSubscriptionAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	// CancelSubscriptionNow terminates the remote subscription immediately.
	CancelSubscriptionNow(ctx context.Context, subscriptionID string) error

	// Prices
	CreatePrice(ctx context.Context, req CreatePriceRequest) (*stripe.Price, error)

	// ConstructEvent verifies the webhook signature against the shared
	// secret and parses the payload. It fails closed.
	ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

// CreateIntentRequest describes a single point-of-sale charge attempt.
type CreateIntentRequest struct {
	// Amount in the smallest currency unit.
	Amount   int64
	Currency string
	Metadata map[string]string
}

type CreateCustomerRequest struct {
	Name            string
	Email           string
	PaymentMethodID string
	Metadata        map[string]string
}

type CreateSubscriptionRequest struct {
	CustomerID      string
	PriceID         string
	TrialPeriodDays int64
	Metadata        map[string]string
}

// UpdateSubscriptionRequest swaps the priced item and/or re-tags metadata.
type UpdateSubscriptionRequest struct {
	// ItemID identifies the existing subscription item to replace.
	ItemID string
	// PriceID is the new price for that item.
	PriceID string
	// Prorate requests proration for the switch.
	Prorate  bool
	Metadata map[string]string
}

type CreatePriceRequest struct {
	// UnitAmount in the smallest currency unit.
	UnitAmount  int64
	Currency    string
	Interval    string
	ProductName string
	Metadata    map[string]string
}
