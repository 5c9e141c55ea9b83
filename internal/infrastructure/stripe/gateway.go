package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/price"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/tripnest/booking-service/internal/config"
	"github.com/tripnest/booking-service/internal/domain/gateway"
	"go.uber.org/zap"
)

// Gateway talks to Stripe through the official client. Every call carries a
// bounded deadline so a slow processor cannot hold a request handler
// hostage.
type Gateway struct {
	webhookSecret string
	timeout       time.Duration
	logger        *zap.Logger
}

func NewGateway(cfg config.ServiceConfig, logger *zap.Logger) gateway.PaymentGateway {
	stripe.Key = cfg.StripeSecretKey

	timeout := cfg.StripeTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Gateway{
		webhookSecret: cfg.StripeWebhookSecret,
		timeout:       timeout,
		logger:        logger,
	}
}

func (g *Gateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, req gateway.CreateIntentRequest) (*stripe.PaymentIntent, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		g.logger.Error("stripe payment intent creation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return intent, nil
}

func (g *Gateway) ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethodID string) (*stripe.PaymentIntent, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx

	intent, err := paymentintent.Confirm(intentID, params)
	if err != nil {
		g.logger.Error("stripe payment intent confirmation failed",
			zap.String("intent_id", intentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to confirm payment intent: %w", err)
	}

	return intent, nil
}

func (g *Gateway) CancelPaymentIntent(ctx context.Context, intentID string) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		g.logger.Error("stripe payment intent cancellation failed",
			zap.String("intent_id", intentID),
			zap.Error(err))
		return fmt.Errorf("failed to cancel payment intent: %w", err)
	}

	return nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, req gateway.CreateCustomerRequest) (*stripe.Customer, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	params := &stripe.CustomerParams{
		Name:  stripe.String(req.Name),
		Email: stripe.String(req.Email),
	}
	params.Context = ctx
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
		params.InvoiceSettings = &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(req.PaymentMethodID),
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	cust, err := customer.New(params)
	if err != nil {
		g.logger.Error("stripe customer creation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	return cust, nil
}

func (g *Gateway) CreateSubscription(ctx context.Context, req gateway.CreateSubscriptionRequest) (*stripe.Subscription, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(req.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(req.PriceID)},
		},
	}
	params.Context = ctx
	if req.TrialPeriodDays > 0 {
		params.TrialPeriodDays = stripe.Int64(req.TrialPeriodDays)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sub, err := subscription.New(params)
	if err != nil {
		g.logger.Error("stripe subscription creation failed",
			zap.String("customer_id", req.CustomerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return sub, nil
}

func (g *Gateway) RetrieveSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		g.logger.Error("stripe subscription retrieval failed",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve subscription: %w", err)
	}

	return sub, nil
}

func (g *Gateway) UpdateSubscription(ctx context.Context, subscriptionID string, req gateway.UpdateSubscriptionRequest) (*stripe.Subscription, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(req.ItemID),
				Price: stripe.String(req.PriceID),
			},
		},
	}
	params.Context = ctx
	if req.Prorate {
		params.ProrationBehavior = stripe.String("create_prorations")
	} else {
		params.ProrationBehavior = stripe.String("none")
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sub, err := subscription.Update(subscriptionID, params)
	if err != nil {
		g.logger.Error("stripe subscription update failed",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	return sub, nil
}

func (g *Gateway) CancelSubscriptionAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := subscription.Update(subscriptionID, params)
	if err != nil {
		g.logger.Error("stripe soft cancel failed",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to cancel subscription at period end: %w", err)
	}

	return sub, nil
}

func (g *Gateway) CancelSubscriptionNow(ctx context.Context, subscriptionID string) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := subscription.Cancel(subscriptionID, params); err != nil {
		g.logger.Error("stripe immediate cancel failed",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	return nil
}

func (g *Gateway) CreatePrice(ctx context.Context, req gateway.CreatePriceRequest) (*stripe.Price, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	params := &stripe.PriceParams{
		UnitAmount: stripe.Int64(req.UnitAmount),
		Currency:   stripe.String(req.Currency),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(req.Interval),
		},
		ProductData: &stripe.PriceProductDataParams{
			Name: stripe.String(req.ProductName),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	p, err := price.New(params)
	if err != nil {
		g.logger.Error("stripe price creation failed",
			zap.String("product", req.ProductName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create price: %w", err)
	}

	return p, nil
}

func (g *Gateway) ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(
		payload,
		signatureHeader,
		g.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
}
