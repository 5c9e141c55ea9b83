package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/tripnest/booking-service/internal/domain/apperrors"
	"github.com/tripnest/booking-service/internal/domain/gateway"
	"github.com/tripnest/booking-service/internal/domain/model"
	"github.com/tripnest/booking-service/internal/domain/repository"
	"go.uber.org/zap"
)

// Consecutive failed invoice payments tolerated before the subscription is
// actively cancelled.
const maxConsecutivePaymentFailures = 3

// WebhookService is the single entry point for asynchronous payment
// processor events and the source of truth for settlement state. Events
// arrive at least once and possibly out of order, so every handler
// re-derives final state from the event payload (or current remote truth)
// instead of applying deltas, and applying the same event twice is a no-op.
type WebhookService struct {
	gateway       gateway.PaymentGateway
	events        repository.WebhookRepository
	bookings      repository.BookingRepository
	transactions  repository.TransactionRepository
	subscriptions repository.SubscriptionRepository
	plans         repository.PlanRepository
	customers     repository.CustomerRepository
	payments      repository.PaymentRepository
	tx            repository.TxManager
	notifier      Notifier
	logger        *zap.Logger
}

func NewWebhookService(
	gw gateway.PaymentGateway,
	events repository.WebhookRepository,
	bookings repository.BookingRepository,
	transactions repository.TransactionRepository,
	subscriptions repository.SubscriptionRepository,
	plans repository.PlanRepository,
	customers repository.CustomerRepository,
	payments repository.PaymentRepository,
	tx repository.TxManager,
	notifier Notifier,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		gateway:       gw,
		events:        events,
		bookings:      bookings,
		transactions:  transactions,
		subscriptions: subscriptions,
		plans:         plans,
		customers:     customers,
		payments:      payments,
		tx:            tx,
		notifier:      notifier,
		logger:        logger,
	}
}

// HandleEvent verifies, records and dispatches one webhook delivery.
//
// It returns an error only when signature verification fails; every other
// outcome is acknowledged so the processor does not redeliver permanently
// unprocessable events. Handler failures are persisted on the event row and
// logged for operator visibility.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := s.gateway.ConstructEvent(payload, signatureHeader)
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidRequest, "webhook signature verification failed", err)
	}

	s.logger.Info("webhook event received",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	if err := s.events.SaveEvent(ctx, event.ID, string(event.Type), event.Data.Raw); err != nil {
		// Processing continues; the event ledger is for idempotency and
		// retry, not a gate on reconciliation.
		s.logger.Warn("failed to record webhook event",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}

	stored, err := s.events.GetEvent(ctx, event.ID)
	if err == nil && stored != nil && stored.Status == model.WebhookStatusCompleted {
		s.logger.Info("webhook event already processed, skipping",
			zap.String("event_id", event.ID))
		return nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		apperrors.LogError(s.logger, err, "webhook handler failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		if markErr := s.events.MarkFailed(ctx, event.ID, err); markErr != nil {
			s.logger.Error("failed to mark webhook event failed",
				zap.String("event_id", event.ID),
				zap.Error(markErr))
		}
		return nil
	}

	if err := s.events.MarkProcessed(ctx, event.ID); err != nil {
		s.logger.Error("failed to mark webhook event processed",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}

	return nil
}

func (s *WebhookService) dispatch(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		return s.handlePaymentIntentSucceeded(ctx, event)
	case stripe.EventTypePaymentIntentPaymentFailed:
		return s.handlePaymentIntentFailed(ctx, event)
	case stripe.EventTypeCustomerSubscriptionCreated:
		return s.handleSubscriptionCreated(ctx, event)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, event)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	case stripe.EventTypeInvoicePaymentSucceeded:
		return s.handleInvoicePaymentSucceeded(ctx, event)
	case stripe.EventTypeInvoicePaymentFailed:
		return s.handleInvoicePaymentFailed(ctx, event)
	case stripe.EventTypeCustomerSubscriptionTrialWillEnd:
		return s.handleTrialWillEnd(ctx, event)
	default:
		return apperrors.InvalidRequest(fmt.Sprintf("unhandled event type: %s", event.Type))
	}
}

// handlePaymentIntentSucceeded settles the point-of-sale transaction and
// activates the booking named in the intent metadata.
func (s *WebhookService) handlePaymentIntentSucceeded(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidRequest, "malformed payment intent payload", err)
	}

	bookingID, err := bookingIDFromIntent(&intent)
	if err != nil {
		return err
	}

	return s.tx.Do(ctx, func(txCtx context.Context) error {
		if err := s.transactions.SetStatusByIntentID(txCtx, intent.ID, model.TransactionStatusSucceeded); err != nil {
			return apperrors.Wrap(err, "failed to settle transaction")
		}
		if err := s.bookings.MarkSettled(txCtx, bookingID); err != nil {
			return apperrors.Wrap(err, "failed to activate booking")
		}
		return nil
	})
}

// handlePaymentIntentFailed records the failed charge, cancels the booking
// and tells the customer what was declined. The notice is best-effort; a
// missing ledger row only skips it.
func (s *WebhookService) handlePaymentIntentFailed(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidRequest, "malformed payment intent payload", err)
	}

	bookingID, err := bookingIDFromIntent(&intent)
	if err != nil {
		return err
	}

	err = s.tx.Do(ctx, func(txCtx context.Context) error {
		if err := s.transactions.SetStatusByIntentID(txCtx, intent.ID, model.TransactionStatusFailed); err != nil {
			return apperrors.Wrap(err, "failed to record failed transaction")
		}
		if err := s.bookings.MarkPaymentFailed(txCtx, bookingID); err != nil {
			return apperrors.Wrap(err, "failed to cancel booking")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyBookingPaymentFailed(ctx, intent.ID, bookingID)
	return nil
}

func (s *WebhookService) notifyBookingPaymentFailed(ctx context.Context, intentID string, bookingID uuid.UUID) {
	txn, err := s.transactions.GetByIntentID(ctx, intentID)
	if err != nil || txn == nil {
		s.logger.Warn("no transaction for failed intent, skipping notice",
			zap.String("intent_id", intentID))
		return
	}
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil || booking == nil {
		s.logger.Warn("no booking for failed intent, skipping notice",
			zap.String("booking_id", bookingID.String()))
		return
	}
	customer, err := s.customers.GetByID(ctx, booking.CustomerID)
	if err != nil || customer == nil {
		s.logger.Warn("no customer for failed intent, skipping notice",
			zap.String("customer_id", booking.CustomerID.String()))
		return
	}
	s.notifier.PaymentFailed(ctx, customer, txn.Amount, txn.Currency)
}

func bookingIDFromIntent(intent *stripe.PaymentIntent) (uuid.UUID, error) {
	raw := intent.Metadata["bookingId"]
	if raw == "" {
		return uuid.Nil, apperrors.NotFound("payment intent carries no booking metadata")
	}
	bookingID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewAppError(apperrors.ErrInvalidRequest, "malformed booking id in intent metadata", err)
	}
	return bookingID, nil
}

// handleSubscriptionCreated upserts the local subscription row from the
// remote object and records the plan on the customer. The same customer
// keeps one row across subscription generations, so a redelivered or
// reordered create simply rewrites the same final state.
func (s *WebhookService) handleSubscriptionCreated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidRequest, "malformed subscription payload", err)
	}

	customerID, planID, err := subscriptionMetadata(sub.Metadata)
	if err != nil || sub.ID == "" {
		return apperrors.InvalidRequest("missing subscription metadata")
	}

	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load customer")
	}
	if customer == nil {
		return apperrors.NotFound("customer not found")
	}

	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load plan")
	}
	if plan == nil {
		return apperrors.NotFound("subscription plan not found")
	}

	existing, err := s.subscriptions.GetFirstByCustomer(ctx, customerID)
	if err != nil {
		return apperrors.Wrap(err, "failed to look up subscription")
	}

	// Redelivery of the create for an agreement that already reached a
	// terminal state must not resurrect it.
	if existing != nil && existing.SubscriptionStatus.Terminal() &&
		existing.StripeSubscriptionID != nil && *existing.StripeSubscriptionID == sub.ID {
		return nil
	}

	expiresAt := time.Unix(sub.CurrentPeriodEnd, 0)
	stripeCustomerID := ""
	if sub.Customer != nil {
		stripeCustomerID = sub.Customer.ID
	}

	err = s.tx.Do(ctx, func(txCtx context.Context) error {
		if existing != nil {
			existing.ExpiresAt = &expiresAt
			existing.SubscriptionStatus = model.SubscriptionStatusActive
			existing.StripeSubscriptionID = &sub.ID
			existing.StripeCustomerID = stripeCustomerID
			existing.SubscriptionPlanID = plan.ID
			if err := s.subscriptions.Update(txCtx, existing); err != nil {
				return apperrors.Wrap(err, "failed to update subscription")
			}
		} else {
			created := &model.Subscription{
				CustomerID:           customer.ID,
				SubscriptionPlanID:   plan.ID,
				SubscriptionStatus:   model.SubscriptionStatusActive,
				StripeCustomerID:     stripeCustomerID,
				StripeSubscriptionID: &sub.ID,
				ExpiresAt:            &expiresAt,
			}
			if err := s.subscriptions.Create(txCtx, created); err != nil {
				return apperrors.Wrap(err, "failed to create subscription")
			}
		}

		return s.customers.SetPlanName(txCtx, customer.ID, plan.PlanName)
	})
	if err != nil {
		return err
	}

	s.notifier.SubscriptionStarted(ctx, customer, plan.PlanName)
	return nil
}

// handleSubscriptionUpdated distinguishes a soft cancel request from a
// renewal or plan change. A pending soft cancel only raises the local flag
// and needs no metadata, so dashboard-initiated cancels land too;
// everything else refreshes the row from the remote object.
func (s *WebhookService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidRequest, "malformed subscription payload", err)
	}

	existing, err := s.subscriptions.GetByStripeSubscriptionID(ctx, sub.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to look up subscription")
	}
	if existing == nil {
		return apperrors.NotFound("subscription not found")
	}

	if existing.SubscriptionStatus.Terminal() {
		s.logger.Info("ignoring update for terminal subscription",
			zap.String("subscription_id", existing.ID.String()))
		return nil
	}

	if sub.CancelAtPeriodEnd {
		return s.subscriptions.SetCancelRequest(ctx, existing.ID, true)
	}

	_, planID, err := subscriptionMetadata(sub.Metadata)
	if err != nil {
		return apperrors.InvalidRequest("missing subscription metadata")
	}

	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load plan")
	}
	if plan == nil {
		return apperrors.NotFound("subscription plan not found")
	}

	expiresAt := time.Unix(sub.CurrentPeriodEnd, 0)

	return s.tx.Do(ctx, func(txCtx context.Context) error {
		existing.ExpiresAt = &expiresAt
		existing.SubscriptionStatus = model.SubscriptionStatusActive
		existing.SubscriptionPlanID = plan.ID
		existing.CancelRequest = false
		if err := s.subscriptions.Update(txCtx, existing); err != nil {
			return apperrors.Wrap(err, "failed to update subscription")
		}
		return s.customers.SetSubscriptionState(txCtx, existing.CustomerID,
			model.CustomerSubscriptionActive, plan.PlanName)
	})
}

// handleSubscriptionDeleted closes the local subscription and drops the
// customer back to the free plan. Safe to replay: terminal rows are left
// untouched.
func (s *WebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidRequest, "malformed subscription payload", err)
	}

	existing, err := s.subscriptions.GetByStripeSubscriptionID(ctx, sub.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to look up subscription")
	}
	if existing == nil {
		s.logger.Info("deletion event for unknown subscription, nothing to do",
			zap.String("stripe_subscription_id", sub.ID))
		return nil
	}
	if existing.SubscriptionStatus.Terminal() {
		return nil
	}

	return s.tx.Do(ctx, func(txCtx context.Context) error {
		if err := s.subscriptions.SetStatus(txCtx, existing.ID, model.SubscriptionStatusCancelled); err != nil {
			return apperrors.Wrap(err, "failed to cancel subscription")
		}
		return s.customers.SetSubscriptionState(txCtx, existing.CustomerID,
			model.CustomerSubscriptionExpired, model.FreePlanName)
	})
}

// handleInvoicePaymentSucceeded re-activates the subscription, extends its
// expiry from current remote truth and appends a success row to the payment
// ledger, keyed by the event id so replays cannot duplicate it.
func (s *WebhookService) handleInvoicePaymentSucceeded(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidRequest, "malformed invoice payload", err)
	}
	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		return apperrors.NotFound("invoice carries no subscription reference")
	}
	subID := invoice.Subscription.ID

	remote, err := s.gateway.RetrieveSubscription(ctx, subID)
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrInternal, "failed to retrieve remote subscription", err)
	}

	customerID, _, err := subscriptionMetadata(remote.Metadata)
	if err != nil {
		return apperrors.InvalidRequest("invalid payment metadata")
	}

	existing, err := s.subscriptions.GetByStripeSubscriptionID(ctx, subID)
	if err != nil {
		return apperrors.Wrap(err, "failed to look up subscription")
	}
	if existing == nil {
		// The invoice event can outrun the subscription-created event.
		existing, err = s.subscriptions.GetFirstByCustomer(ctx, customerID)
		if err != nil {
			return apperrors.Wrap(err, "failed to look up subscription")
		}
	}
	if existing == nil {
		return apperrors.NotFound("subscription not found")
	}
	if existing.SubscriptionStatus.Terminal() {
		return nil
	}

	expiresAt := time.Unix(remote.CurrentPeriodEnd, 0)

	return s.tx.Do(ctx, func(txCtx context.Context) error {
		existing.SubscriptionStatus = model.SubscriptionStatusActive
		existing.StripeSubscriptionID = &subID
		existing.ExpiresAt = &expiresAt
		if err := s.subscriptions.Update(txCtx, existing); err != nil {
			return apperrors.Wrap(err, "failed to activate subscription")
		}

		if invoice.AmountPaid > 0 {
			_, err := s.payments.Create(txCtx, &model.Payment{
				CustomerID:         existing.CustomerID,
				SubscriptionID:     existing.ID,
				SubscriptionPlanID: existing.SubscriptionPlanID,
				Amount:             decimal.NewFromInt(invoice.AmountPaid).Shift(-2),
				Currency:           strings.ToUpper(string(invoice.Currency)),
				PaymentDate:        time.Unix(invoice.Created, 0),
				Status:             model.PaymentStatusSucceeded,
				StripeEventID:      event.ID,
			})
			if err != nil {
				return apperrors.Wrap(err, "failed to record payment")
			}
		}

		return s.customers.SetSubscriptionStatus(txCtx, existing.CustomerID,
			model.CustomerSubscriptionActive)
	})
}

// handleInvoicePaymentFailed appends a failed ledger row and moves the
// subscription to PAST_DUE. The consecutive-failure count is derived from
// the local ledger, which is keyed by event id: a redelivered failure event
// inserts nothing and changes nothing. Crossing the failure limit cancels
// the remote subscription exactly once.
func (s *WebhookService) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidRequest, "malformed invoice payload", err)
	}
	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		return apperrors.NotFound("invoice carries no subscription reference")
	}
	subID := invoice.Subscription.ID

	remote, err := s.gateway.RetrieveSubscription(ctx, subID)
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrInternal, "failed to retrieve remote subscription", err)
	}

	customerID, _, err := subscriptionMetadata(remote.Metadata)
	if err != nil {
		return apperrors.InvalidRequest("missing payment metadata")
	}

	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load customer")
	}
	if customer == nil {
		return apperrors.NotFound("customer not found")
	}

	existing, err := s.subscriptions.GetByStripeSubscriptionID(ctx, subID)
	if err != nil {
		return apperrors.Wrap(err, "failed to look up subscription")
	}
	if existing == nil {
		return apperrors.NotFound("subscription not found")
	}
	if existing.SubscriptionStatus.Terminal() {
		return nil
	}

	amountDue := decimal.NewFromInt(invoice.AmountDue).Shift(-2)
	currency := strings.ToUpper(string(invoice.Currency))

	var failures int64
	duplicate := false

	err = s.tx.Do(ctx, func(txCtx context.Context) error {
		created, err := s.payments.Create(txCtx, &model.Payment{
			CustomerID:         existing.CustomerID,
			SubscriptionID:     existing.ID,
			SubscriptionPlanID: existing.SubscriptionPlanID,
			Amount:             amountDue,
			Currency:           currency,
			PaymentDate:        time.Now(),
			Status:             model.PaymentStatusFailed,
			StripeEventID:      event.ID,
		})
		if err != nil {
			return apperrors.Wrap(err, "failed to record failed payment")
		}
		if !created {
			duplicate = true
			return nil
		}

		failures, err = s.payments.CountConsecutiveFailures(txCtx, existing.ID)
		if err != nil {
			return apperrors.Wrap(err, "failed to count payment failures")
		}

		return s.subscriptions.SetStatus(txCtx, existing.ID, model.SubscriptionStatusPastDue)
	})
	if err != nil {
		return err
	}
	if duplicate {
		return nil
	}

	if failures < maxConsecutivePaymentFailures {
		s.notifier.PaymentFailed(ctx, customer, amountDue, currency)
		return nil
	}

	if err := s.gateway.CancelSubscriptionNow(ctx, subID); err != nil {
		// Surfacing the error keeps the event retriable; the next failed
		// invoice or the retry loop will attempt the cancel again.
		return apperrors.NewAppError(apperrors.ErrInternal, "failed to cancel remote subscription", err)
	}

	err = s.tx.Do(ctx, func(txCtx context.Context) error {
		if err := s.subscriptions.SetStatus(txCtx, existing.ID, model.SubscriptionStatusCancelled); err != nil {
			return apperrors.Wrap(err, "failed to cancel subscription")
		}
		return s.customers.SetSubscriptionState(txCtx, existing.CustomerID,
			model.CustomerSubscriptionExpired, model.FreePlanName)
	})
	if err != nil {
		return err
	}

	s.notifier.SubscriptionCancelled(ctx, customer)
	return nil
}

// handleTrialWillEnd sends a reminder; no state changes.
func (s *WebhookService) handleTrialWillEnd(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidRequest, "malformed subscription payload", err)
	}

	customerID, _, err := subscriptionMetadata(sub.Metadata)
	if err != nil {
		return apperrors.InvalidRequest("missing subscription metadata")
	}

	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return apperrors.Wrap(err, "failed to load customer")
	}
	if customer == nil {
		return apperrors.NotFound("customer not found")
	}

	endsAt := time.Unix(sub.TrialEnd, 0)
	s.notifier.TrialEnding(ctx, customer, endsAt)
	return nil
}

func subscriptionMetadata(metadata map[string]string) (customerID, planID uuid.UUID, err error) {
	customerID, err = uuid.Parse(metadata["customerId"])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid customerId metadata: %w", err)
	}
	planID, err = uuid.Parse(metadata["subscriptionPlanId"])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid subscriptionPlanId metadata: %w", err)
	}
	return customerID, planID, nil
}
