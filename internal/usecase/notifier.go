package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tripnest/booking-service/internal/domain/model"
	"go.uber.org/zap"
)

// Notifier delivers customer-facing billing notices. Delivery transport is
// out of scope here; implementations decide whether that means email, push
// or anything else.
type Notifier interface {
	SubscriptionStarted(ctx context.Context, customer *model.Customer, planName string)
	PaymentFailed(ctx context.Context, customer *model.Customer, amount decimal.Decimal, currency string)
	SubscriptionCancelled(ctx context.Context, customer *model.Customer)
	TrialEnding(ctx context.Context, customer *model.Customer, endsAt time.Time)
}

// LogNotifier is the default Notifier; it records every notice in the
// service log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SubscriptionStarted(ctx context.Context, customer *model.Customer, planName string) {
	n.logger.Info("notify: subscription started",
		zap.String("customer_id", customer.ID.String()),
		zap.String("plan", planName))
}

func (n *LogNotifier) PaymentFailed(ctx context.Context, customer *model.Customer, amount decimal.Decimal, currency string) {
	n.logger.Warn("notify: subscription payment failed",
		zap.String("customer_id", customer.ID.String()),
		zap.String("amount", amount.String()),
		zap.String("currency", currency))
}

func (n *LogNotifier) SubscriptionCancelled(ctx context.Context, customer *model.Customer) {
	n.logger.Warn("notify: subscription cancelled",
		zap.String("customer_id", customer.ID.String()))
}

func (n *LogNotifier) TrialEnding(ctx context.Context, customer *model.Customer, endsAt time.Time) {
	n.logger.Info("notify: trial ending soon",
		zap.String("customer_id", customer.ID.String()),
		zap.Time("ends_at", endsAt))
}
