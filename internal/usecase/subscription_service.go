package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/tripnest/booking-service/internal/domain/apperrors"
	"github.com/tripnest/booking-service/internal/domain/gateway"
	"github.com/tripnest/booking-service/internal/domain/model"
	"github.com/tripnest/booking-service/internal/domain/repository"
	"go.uber.org/zap"
)

// SubscriptionService manages the customer-initiated half of the
// subscription lifecycle. Synchronous calls only ever create PENDING local
// state; confirmation always arrives through the webhook reconciler.
type SubscriptionService struct {
	customers     repository.CustomerRepository
	plans         repository.PlanRepository
	subscriptions repository.SubscriptionRepository
	payments      repository.PaymentRepository
	gateway       gateway.PaymentGateway
	logger        *zap.Logger
}

func NewSubscriptionService(
	customers repository.CustomerRepository,
	plans repository.PlanRepository,
	subscriptions repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	gw gateway.PaymentGateway,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		customers:     customers,
		plans:         plans,
		subscriptions: subscriptions,
		payments:      payments,
		gateway:       gw,
		logger:        logger,
	}
}

type SubscribeInput struct {
	CustomerID      uuid.UUID
	PlanID          uuid.UUID
	PaymentMethodID string
	Name            string
	Email           string
}

// Subscribe starts a remote subscription for the customer. The local
// Subscription row is created by the webhook path once the processor
// confirms; here we only flip the customer to PENDING.
func (s *SubscriptionService) Subscribe(ctx context.Context, in SubscribeInput) (*stripe.Subscription, error) {
	plan, err := s.plans.GetByID(ctx, in.PlanID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load plan")
	}
	if plan == nil {
		return nil, apperrors.NotFound("subscription plan not found")
	}

	customer, err := s.customers.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load customer")
	}
	if customer == nil {
		return nil, apperrors.NotFound("customer not found")
	}
	if !customer.InGoodStanding() {
		return nil, apperrors.Forbidden("account is not active")
	}

	active, err := s.subscriptions.GetActiveByCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to check existing subscription")
	}
	if active != nil {
		planName := "a plan"
		if active.Plan != nil {
			planName = active.Plan.PlanName
		}
		return nil, apperrors.Conflict(fmt.Sprintf("already subscribed to %s", planName))
	}

	if plan.IsFree() || plan.StripePriceID == nil {
		return nil, apperrors.InvalidRequest("plan has no billable price")
	}

	stripeCustomerID, err := s.resolveStripeCustomer(ctx, in, plan)
	if err != nil {
		return nil, err
	}

	comp := &Compensations{}

	remoteSub, err := s.gateway.CreateSubscription(ctx, gateway.CreateSubscriptionRequest{
		CustomerID:      stripeCustomerID,
		PriceID:         *plan.StripePriceID,
		TrialPeriodDays: plan.TrialPeriodDays,
		Metadata: map[string]string{
			"customerId":         in.CustomerID.String(),
			"subscriptionPlanId": plan.ID.String(),
		},
	})
	if err != nil {
		apperrors.LogError(s.logger, err, "remote subscription creation failed",
			zap.String("customer_id", in.CustomerID.String()))
		return nil, apperrors.NewAppError(apperrors.ErrInternal, "failed to create subscription", err)
	}

	comp.Add("cancel remote subscription "+remoteSub.ID, func(undoCtx context.Context) error {
		return s.gateway.CancelSubscriptionNow(undoCtx, remoteSub.ID)
	})

	if err := s.customers.SetSubscriptionStatus(ctx, in.CustomerID, model.CustomerSubscriptionPending); err != nil {
		comp.Run(ctx, s.logger)
		return nil, apperrors.NewAppError(apperrors.ErrInternal, "failed to mark customer pending", err)
	}

	s.logger.Info("subscription created, awaiting webhook confirmation",
		zap.String("customer_id", in.CustomerID.String()),
		zap.String("plan", plan.PlanName),
		zap.String("stripe_subscription_id", remoteSub.ID))

	return remoteSub, nil
}

// resolveStripeCustomer reuses the remote billing identity from any prior
// subscription row, creating a fresh one only for first-time subscribers.
func (s *SubscriptionService) resolveStripeCustomer(ctx context.Context, in SubscribeInput, plan *model.SubscriptionPlan) (string, error) {
	prior, err := s.subscriptions.GetFirstByCustomer(ctx, in.CustomerID)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to look up prior subscription")
	}
	if prior != nil && prior.StripeCustomerID != "" {
		return prior.StripeCustomerID, nil
	}

	stripeCustomer, err := s.gateway.CreateCustomer(ctx, gateway.CreateCustomerRequest{
		Name:            in.Name,
		Email:           in.Email,
		PaymentMethodID: in.PaymentMethodID,
		Metadata: map[string]string{
			"customerId":         in.CustomerID.String(),
			"subscriptionPlanId": plan.ID.String(),
		},
	})
	if err != nil {
		apperrors.LogError(s.logger, err, "remote customer creation failed",
			zap.String("customer_id", in.CustomerID.String()))
		return "", apperrors.NewAppError(apperrors.ErrInternal, "failed to create billing customer", err)
	}

	return stripeCustomer.ID, nil
}

// Cancel requests a soft cancel: the remote subscription ends at the close
// of the paid period, and local state changes only when the corresponding
// webhook lands.
func (s *SubscriptionService) Cancel(ctx context.Context, customerID, subscriptionID uuid.UUID, requester Requester) error {
	if requester.Role == RoleCustomer && requester.CustomerID != customerID {
		return apperrors.Forbidden("cannot cancel another customer's subscription")
	}

	sub, err := s.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load subscription")
	}
	if sub == nil || sub.CustomerID != customerID || sub.SubscriptionStatus != model.SubscriptionStatusActive {
		return apperrors.NotFound("no active subscription found")
	}
	if sub.StripeSubscriptionID == nil {
		return apperrors.NewAppError(apperrors.ErrInternal, "subscription has no remote counterpart", nil)
	}

	if _, err := s.gateway.CancelSubscriptionAtPeriodEnd(ctx, *sub.StripeSubscriptionID); err != nil {
		apperrors.LogError(s.logger, err, "remote soft cancel failed",
			zap.String("subscription_id", subscriptionID.String()))
		return apperrors.NewAppError(apperrors.ErrInternal, "failed to cancel subscription", err)
	}

	s.logger.Info("soft cancel requested",
		zap.String("subscription_id", subscriptionID.String()),
		zap.String("customer_id", customerID.String()))

	return nil
}

type ChangePlanInput struct {
	NewPlanID uuid.UUID
}

// ChangePlan swaps the remote subscription's priced item with proration and
// re-tags metadata for webhook correlation. The local row is deliberately
// untouched: it reflects the change only once the processor confirms it,
// which avoids racing ahead of remote truth.
func (s *SubscriptionService) ChangePlan(ctx context.Context, customerID uuid.UUID, in ChangePlanInput, requester Requester) (*stripe.Subscription, error) {
	if requester.Role == RoleCustomer && requester.CustomerID != customerID {
		return nil, apperrors.Forbidden("cannot change another customer's subscription")
	}

	sub, err := s.subscriptions.GetActiveByCustomer(ctx, customerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load subscription")
	}
	if sub == nil {
		return nil, apperrors.NotFound("active subscription not found")
	}
	if sub.StripeSubscriptionID == nil {
		return nil, apperrors.NewAppError(apperrors.ErrInternal, "subscription has no remote counterpart", nil)
	}

	newPlan, err := s.plans.GetByID(ctx, in.NewPlanID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load new plan")
	}
	if newPlan == nil {
		return nil, apperrors.NotFound("new plan not found")
	}
	if newPlan.IsFree() || newPlan.StripePriceID == nil {
		return nil, apperrors.InvalidRequest("new plan has no billable price")
	}

	remote, err := s.gateway.RetrieveSubscription(ctx, *sub.StripeSubscriptionID)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrInternal, "failed to retrieve remote subscription", err)
	}
	if remote == nil || remote.Items == nil || len(remote.Items.Data) == 0 {
		return nil, apperrors.NotFound("remote subscription not found")
	}

	updated, err := s.gateway.UpdateSubscription(ctx, remote.ID, gateway.UpdateSubscriptionRequest{
		ItemID:  remote.Items.Data[0].ID,
		PriceID: *newPlan.StripePriceID,
		Prorate: true,
		Metadata: map[string]string{
			"customerId":         customerID.String(),
			"subscriptionPlanId": newPlan.ID.String(),
		},
	})
	if err != nil {
		apperrors.LogError(s.logger, err, "remote plan change failed",
			zap.String("subscription_id", sub.ID.String()))
		return nil, apperrors.NewAppError(apperrors.ErrInternal, "failed to change plan", err)
	}

	s.logger.Info("plan change requested, awaiting webhook confirmation",
		zap.String("customer_id", customerID.String()),
		zap.String("new_plan", newPlan.PlanName))

	return updated, nil
}

// BillingHistory returns the invoice payment ledger for the customer's
// subscription, oldest first.
func (s *SubscriptionService) BillingHistory(ctx context.Context, customerID uuid.UUID, requester Requester) ([]*model.Payment, error) {
	if requester.Role == RoleCustomer && requester.CustomerID != customerID {
		return nil, apperrors.Forbidden("cannot view another customer's billing history")
	}

	sub, err := s.subscriptions.GetFirstByCustomer(ctx, customerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load subscription")
	}
	if sub == nil {
		return nil, apperrors.NotFound("no subscription found")
	}

	payments, err := s.payments.ListBySubscription(ctx, sub.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list payments")
	}
	return payments, nil
}

// List returns the requester's active subscriptions, or every subscription
// for admins.
func (s *SubscriptionService) List(ctx context.Context, requester Requester) ([]*model.Subscription, error) {
	if requester.Role == RoleAdmin {
		subs, err := s.subscriptions.ListAll(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list subscriptions")
		}
		return subs, nil
	}

	subs, err := s.subscriptions.ListActiveByCustomer(ctx, requester.CustomerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list subscriptions")
	}
	return subs, nil
}
