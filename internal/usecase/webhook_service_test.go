package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v79"
	"github.com/tripnest/booking-service/internal/domain/apperrors"
	"github.com/tripnest/booking-service/internal/domain/model"
	"go.uber.org/zap"
)

type webhookFixture struct {
	svc           *WebhookService
	gw            *MockPaymentGateway
	events        *MockWebhookRepository
	bookings      *MockBookingRepository
	transactions  *MockTransactionRepository
	subscriptions *MockSubscriptionRepository
	plans         *MockPlanRepository
	customers     *MockCustomerRepository
	payments      *MockPaymentRepository
	notifier      *MockNotifier
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		gw:            new(MockPaymentGateway),
		events:        new(MockWebhookRepository),
		bookings:      new(MockBookingRepository),
		transactions:  new(MockTransactionRepository),
		subscriptions: new(MockSubscriptionRepository),
		plans:         new(MockPlanRepository),
		customers:     new(MockCustomerRepository),
		payments:      new(MockPaymentRepository),
		notifier:      new(MockNotifier),
	}
	f.svc = NewWebhookService(
		f.gw, f.events, f.bookings, f.transactions, f.subscriptions,
		f.plans, f.customers, f.payments, fakeTxManager{}, f.notifier,
		zap.NewNop())
	return f
}

func stripeEvent(id string, eventType stripe.EventType, payload interface{}) stripe.Event {
	raw, _ := json.Marshal(payload)
	return stripe.Event{
		ID:   id,
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

// expectBookkeeping wires the event ledger for a delivery that reaches
// dispatch.
func (f *webhookFixture) expectBookkeeping(event stripe.Event) {
	f.gw.On("ConstructEvent", mock.Anything, "sig").Return(event, nil)
	f.events.On("SaveEvent", mock.Anything, event.ID, string(event.Type), mock.Anything).Return(nil)
	f.events.On("GetEvent", mock.Anything, event.ID).
		Return(&model.StripeWebhookEvent{StripeEventID: event.ID, Status: model.WebhookStatusPending}, nil)
}

func TestHandleEvent_SignatureFailureFailsClosed(t *testing.T) {
	f := newWebhookFixture()

	f.gw.On("ConstructEvent", mock.Anything, "bad").
		Return(stripe.Event{}, assert.AnError)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "bad")

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrInvalidRequest, apperrors.CodeOf(err))
	f.events.AssertNotCalled(t, "SaveEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvent_SkipsAlreadyProcessedEvent(t *testing.T) {
	f := newWebhookFixture()

	event := stripeEvent("evt_done", stripe.EventTypePaymentIntentSucceeded,
		map[string]interface{}{"id": "pi_1"})
	f.gw.On("ConstructEvent", mock.Anything, "sig").Return(event, nil)
	f.events.On("SaveEvent", mock.Anything, "evt_done", mock.Anything, mock.Anything).Return(nil)
	f.events.On("GetEvent", mock.Anything, "evt_done").
		Return(&model.StripeWebhookEvent{StripeEventID: "evt_done", Status: model.WebhookStatusCompleted}, nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.transactions.AssertNotCalled(t, "SetStatusByIntentID", mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestHandleEvent_PaymentIntentSucceededSettlesBooking(t *testing.T) {
	f := newWebhookFixture()

	bookingID := uuid.New()
	event := stripeEvent("evt_1", stripe.EventTypePaymentIntentSucceeded, map[string]interface{}{
		"id":       "pi_1",
		"metadata": map[string]string{"bookingId": bookingID.String()},
	})
	f.expectBookkeeping(event)
	f.transactions.On("SetStatusByIntentID", mock.Anything, "pi_1", model.TransactionStatusSucceeded).Return(nil)
	f.bookings.On("MarkSettled", mock.Anything, bookingID).Return(nil)
	f.events.On("MarkProcessed", mock.Anything, "evt_1").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.transactions.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
	f.events.AssertCalled(t, "MarkProcessed", mock.Anything, "evt_1")
}

func TestHandleEvent_PaymentIntentFailedCancelsBooking(t *testing.T) {
	f := newWebhookFixture()

	bookingID := uuid.New()
	customerID := uuid.New()
	customer := &model.Customer{ID: customerID}
	event := stripeEvent("evt_2", stripe.EventTypePaymentIntentPaymentFailed, map[string]interface{}{
		"id":       "pi_2",
		"metadata": map[string]string{"bookingId": bookingID.String()},
	})
	f.expectBookkeeping(event)
	f.transactions.On("SetStatusByIntentID", mock.Anything, "pi_2", model.TransactionStatusFailed).Return(nil)
	f.bookings.On("MarkPaymentFailed", mock.Anything, bookingID).Return(nil)
	f.transactions.On("GetByIntentID", mock.Anything, "pi_2").
		Return(&model.Transaction{
			BookingID: bookingID,
			Amount:    decimalFromCents(15000),
			Currency:  "USD",
		}, nil)
	f.bookings.On("GetByID", mock.Anything, bookingID).
		Return(&model.Booking{ID: bookingID, CustomerID: customerID}, nil)
	f.customers.On("GetByID", mock.Anything, customerID).Return(customer, nil)
	f.notifier.On("PaymentFailed", mock.Anything, customer, decimalFromCents(15000), "USD").Return()
	f.events.On("MarkProcessed", mock.Anything, "evt_2").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.bookings.AssertExpectations(t)
	f.notifier.AssertCalled(t, "PaymentFailed", mock.Anything, customer, decimalFromCents(15000), "USD")
}

func TestHandleEvent_MissingBookingMetadataIsRecordedNotFatal(t *testing.T) {
	f := newWebhookFixture()

	event := stripeEvent("evt_3", stripe.EventTypePaymentIntentSucceeded, map[string]interface{}{
		"id": "pi_3",
	})
	f.expectBookkeeping(event)
	f.events.On("MarkFailed", mock.Anything, "evt_3", mock.Anything).Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	// The delivery is acknowledged; the failure lives on the event row.
	assert.NoError(t, err)
	f.events.AssertCalled(t, "MarkFailed", mock.Anything, "evt_3", mock.Anything)
	f.bookings.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything)
}

func TestHandleEvent_UnhandledEventTypeIsRecordedNotFatal(t *testing.T) {
	f := newWebhookFixture()

	event := stripeEvent("evt_4", "charge.refunded", map[string]interface{}{"id": "ch_1"})
	f.expectBookkeeping(event)
	f.events.On("MarkFailed", mock.Anything, "evt_4", mock.Anything).Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.events.AssertCalled(t, "MarkFailed", mock.Anything, "evt_4", mock.Anything)
}

func TestHandleEvent_SubscriptionDeletedIsIdempotent(t *testing.T) {
	f := newWebhookFixture()

	event := stripeEvent("evt_5", stripe.EventTypeCustomerSubscriptionDeleted, map[string]interface{}{
		"id": "sub_1",
	})
	f.expectBookkeeping(event)
	f.subscriptions.On("GetByStripeSubscriptionID", mock.Anything, "sub_1").
		Return(&model.Subscription{
			ID:                 uuid.New(),
			SubscriptionStatus: model.SubscriptionStatusCancelled,
		}, nil)
	f.events.On("MarkProcessed", mock.Anything, "evt_5").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.subscriptions.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	f.customers.AssertNotCalled(t, "SetSubscriptionState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvent_SubscriptionDeletedClosesActiveRow(t *testing.T) {
	f := newWebhookFixture()

	subID := uuid.New()
	customerID := uuid.New()
	event := stripeEvent("evt_6", stripe.EventTypeCustomerSubscriptionDeleted, map[string]interface{}{
		"id": "sub_2",
	})
	f.expectBookkeeping(event)
	f.subscriptions.On("GetByStripeSubscriptionID", mock.Anything, "sub_2").
		Return(&model.Subscription{
			ID:                 subID,
			CustomerID:         customerID,
			SubscriptionStatus: model.SubscriptionStatusActive,
		}, nil)
	f.subscriptions.On("SetStatus", mock.Anything, subID, model.SubscriptionStatusCancelled).Return(nil)
	f.customers.On("SetSubscriptionState", mock.Anything, customerID,
		model.CustomerSubscriptionExpired, model.FreePlanName).Return(nil)
	f.events.On("MarkProcessed", mock.Anything, "evt_6").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.subscriptions.AssertExpectations(t)
	f.customers.AssertExpectations(t)
}

func invoiceFailedEvent(eventID, stripeSubID string) stripe.Event {
	return stripeEvent(eventID, stripe.EventTypeInvoicePaymentFailed, map[string]interface{}{
		"id":           "in_1",
		"subscription": map[string]interface{}{"id": stripeSubID},
		"amount_due":   5000,
		"currency":     "usd",
	})
}

func TestHandleEvent_InvoiceFailureBelowLimitMovesToPastDue(t *testing.T) {
	f := newWebhookFixture()

	subID := uuid.New()
	customerID := uuid.New()
	planID := uuid.New()
	event := invoiceFailedEvent("evt_7", "sub_3")

	f.expectBookkeeping(event)
	f.gw.On("RetrieveSubscription", mock.Anything, "sub_3").
		Return(&stripe.Subscription{
			ID: "sub_3",
			Metadata: map[string]string{
				"customerId":         customerID.String(),
				"subscriptionPlanId": planID.String(),
			},
		}, nil)
	customer := &model.Customer{ID: customerID}
	f.customers.On("GetByID", mock.Anything, customerID).Return(customer, nil)
	f.subscriptions.On("GetByStripeSubscriptionID", mock.Anything, "sub_3").
		Return(&model.Subscription{
			ID:                 subID,
			CustomerID:         customerID,
			SubscriptionPlanID: planID,
			SubscriptionStatus: model.SubscriptionStatusActive,
		}, nil)
	f.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusFailed && p.StripeEventID == "evt_7"
	})).Return(true, nil)
	f.payments.On("CountConsecutiveFailures", mock.Anything, subID).Return(int64(1), nil)
	f.subscriptions.On("SetStatus", mock.Anything, subID, model.SubscriptionStatusPastDue).Return(nil)
	f.notifier.On("PaymentFailed", mock.Anything, customer, mock.Anything, "USD").Return()
	f.events.On("MarkProcessed", mock.Anything, "evt_7").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.gw.AssertNotCalled(t, "CancelSubscriptionNow", mock.Anything, mock.Anything)
	f.notifier.AssertCalled(t, "PaymentFailed", mock.Anything, customer, mock.Anything, "USD")
}

func TestHandleEvent_ThirdInvoiceFailureCancelsRemoteOnce(t *testing.T) {
	f := newWebhookFixture()

	subID := uuid.New()
	customerID := uuid.New()
	planID := uuid.New()
	event := invoiceFailedEvent("evt_8", "sub_4")

	f.expectBookkeeping(event)
	f.gw.On("RetrieveSubscription", mock.Anything, "sub_4").
		Return(&stripe.Subscription{
			ID: "sub_4",
			Metadata: map[string]string{
				"customerId":         customerID.String(),
				"subscriptionPlanId": planID.String(),
			},
		}, nil)
	customer := &model.Customer{ID: customerID}
	f.customers.On("GetByID", mock.Anything, customerID).Return(customer, nil)
	f.subscriptions.On("GetByStripeSubscriptionID", mock.Anything, "sub_4").
		Return(&model.Subscription{
			ID:                 subID,
			CustomerID:         customerID,
			SubscriptionPlanID: planID,
			SubscriptionStatus: model.SubscriptionStatusPastDue,
		}, nil)
	f.payments.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(true, nil)
	f.payments.On("CountConsecutiveFailures", mock.Anything, subID).Return(int64(3), nil)
	f.subscriptions.On("SetStatus", mock.Anything, subID, model.SubscriptionStatusPastDue).Return(nil)
	f.gw.On("CancelSubscriptionNow", mock.Anything, "sub_4").Return(nil).Once()
	f.subscriptions.On("SetStatus", mock.Anything, subID, model.SubscriptionStatusCancelled).Return(nil)
	f.customers.On("SetSubscriptionState", mock.Anything, customerID,
		model.CustomerSubscriptionExpired, model.FreePlanName).Return(nil)
	f.notifier.On("SubscriptionCancelled", mock.Anything, customer).Return()
	f.events.On("MarkProcessed", mock.Anything, "evt_8").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.gw.AssertNumberOfCalls(t, "CancelSubscriptionNow", 1)
	f.notifier.AssertCalled(t, "SubscriptionCancelled", mock.Anything, customer)
	f.notifier.AssertNotCalled(t, "PaymentFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvent_RedeliveredInvoiceFailureChangesNothing(t *testing.T) {
	f := newWebhookFixture()

	subID := uuid.New()
	customerID := uuid.New()
	planID := uuid.New()
	event := invoiceFailedEvent("evt_9", "sub_5")

	f.expectBookkeeping(event)
	f.gw.On("RetrieveSubscription", mock.Anything, "sub_5").
		Return(&stripe.Subscription{
			ID: "sub_5",
			Metadata: map[string]string{
				"customerId":         customerID.String(),
				"subscriptionPlanId": planID.String(),
			},
		}, nil)
	f.customers.On("GetByID", mock.Anything, customerID).Return(&model.Customer{ID: customerID}, nil)
	f.subscriptions.On("GetByStripeSubscriptionID", mock.Anything, "sub_5").
		Return(&model.Subscription{
			ID:                 subID,
			CustomerID:         customerID,
			SubscriptionPlanID: planID,
			SubscriptionStatus: model.SubscriptionStatusPastDue,
		}, nil)
	f.payments.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(false, nil)
	f.events.On("MarkProcessed", mock.Anything, "evt_9").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.payments.AssertNotCalled(t, "CountConsecutiveFailures", mock.Anything, mock.Anything)
	f.subscriptions.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "PaymentFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvent_InvoicePaymentSucceededRecordsLedgerRow(t *testing.T) {
	f := newWebhookFixture()

	subID := uuid.New()
	customerID := uuid.New()
	planID := uuid.New()
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	event := stripeEvent("evt_10", stripe.EventTypeInvoicePaymentSucceeded, map[string]interface{}{
		"id":           "in_2",
		"subscription": map[string]interface{}{"id": "sub_6"},
		"amount_paid":  2900,
		"currency":     "usd",
		"created":      time.Now().Unix(),
	})

	f.expectBookkeeping(event)
	f.gw.On("RetrieveSubscription", mock.Anything, "sub_6").
		Return(&stripe.Subscription{
			ID:               "sub_6",
			CurrentPeriodEnd: periodEnd,
			Metadata: map[string]string{
				"customerId":         customerID.String(),
				"subscriptionPlanId": planID.String(),
			},
		}, nil)
	f.subscriptions.On("GetByStripeSubscriptionID", mock.Anything, "sub_6").
		Return(&model.Subscription{
			ID:                 subID,
			CustomerID:         customerID,
			SubscriptionPlanID: planID,
			SubscriptionStatus: model.SubscriptionStatusPastDue,
		}, nil)
	f.subscriptions.On("Update", mock.Anything, mock.MatchedBy(func(s *model.Subscription) bool {
		return s.SubscriptionStatus == model.SubscriptionStatusActive &&
			s.ExpiresAt != nil && s.ExpiresAt.Unix() == periodEnd
	})).Return(nil)
	f.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.Status == model.PaymentStatusSucceeded &&
			p.StripeEventID == "evt_10" &&
			p.Amount.Equal(decimalFromCents(2900))
	})).Return(true, nil)
	f.customers.On("SetSubscriptionStatus", mock.Anything, customerID, model.CustomerSubscriptionActive).Return(nil)
	f.events.On("MarkProcessed", mock.Anything, "evt_10").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.subscriptions.AssertExpectations(t)
	f.payments.AssertExpectations(t)
}

func TestHandleEvent_SubscriptionCreatedUpsertsLocalRow(t *testing.T) {
	f := newWebhookFixture()

	customerID := uuid.New()
	planID := uuid.New()
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	event := stripeEvent("evt_11", stripe.EventTypeCustomerSubscriptionCreated, map[string]interface{}{
		"id":                 "sub_7",
		"current_period_end": periodEnd,
		"customer":           map[string]interface{}{"id": "cus_1"},
		"metadata": map[string]string{
			"customerId":         customerID.String(),
			"subscriptionPlanId": planID.String(),
		},
	})

	customer := &model.Customer{ID: customerID}
	plan := &model.SubscriptionPlan{ID: planID, PlanName: "PREMIUM"}

	f.expectBookkeeping(event)
	f.customers.On("GetByID", mock.Anything, customerID).Return(customer, nil)
	f.plans.On("GetByID", mock.Anything, planID).Return(plan, nil)
	f.subscriptions.On("GetFirstByCustomer", mock.Anything, customerID).Return(nil, nil)
	f.subscriptions.On("Create", mock.Anything, mock.MatchedBy(func(s *model.Subscription) bool {
		return s.SubscriptionStatus == model.SubscriptionStatusActive &&
			s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == "sub_7" &&
			s.StripeCustomerID == "cus_1"
	})).Return(nil)
	f.customers.On("SetPlanName", mock.Anything, customerID, "PREMIUM").Return(nil)
	f.notifier.On("SubscriptionStarted", mock.Anything, customer, "PREMIUM").Return()
	f.events.On("MarkProcessed", mock.Anything, "evt_11").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.subscriptions.AssertExpectations(t)
	f.notifier.AssertCalled(t, "SubscriptionStarted", mock.Anything, customer, "PREMIUM")
}

func TestHandleEvent_SubscriptionUpdatedWithPendingCancelOnlySetsFlag(t *testing.T) {
	f := newWebhookFixture()

	subID := uuid.New()
	customerID := uuid.New()
	planID := uuid.New()
	event := stripeEvent("evt_12", stripe.EventTypeCustomerSubscriptionUpdated, map[string]interface{}{
		"id":                   "sub_8",
		"cancel_at_period_end": true,
		"metadata": map[string]string{
			"customerId":         customerID.String(),
			"subscriptionPlanId": planID.String(),
		},
	})

	f.expectBookkeeping(event)
	f.subscriptions.On("GetByStripeSubscriptionID", mock.Anything, "sub_8").
		Return(&model.Subscription{
			ID:                 subID,
			CustomerID:         customerID,
			SubscriptionStatus: model.SubscriptionStatusActive,
		}, nil)
	f.subscriptions.On("SetCancelRequest", mock.Anything, subID, true).Return(nil)
	f.events.On("MarkProcessed", mock.Anything, "evt_12").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.subscriptions.AssertCalled(t, "SetCancelRequest", mock.Anything, subID, true)
	f.subscriptions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestHandleEvent_SoftCancelWithoutMetadataStillSetsFlag(t *testing.T) {
	f := newWebhookFixture()

	subID := uuid.New()
	event := stripeEvent("evt_13", stripe.EventTypeCustomerSubscriptionUpdated, map[string]interface{}{
		"id":                   "sub_9",
		"cancel_at_period_end": true,
	})

	f.expectBookkeeping(event)
	f.subscriptions.On("GetByStripeSubscriptionID", mock.Anything, "sub_9").
		Return(&model.Subscription{
			ID:                 subID,
			CustomerID:         uuid.New(),
			SubscriptionStatus: model.SubscriptionStatusActive,
		}, nil)
	f.subscriptions.On("SetCancelRequest", mock.Anything, subID, true).Return(nil)
	f.events.On("MarkProcessed", mock.Anything, "evt_13").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	// Dashboard-initiated cancels carry no metadata; the flag still lands.
	assert.NoError(t, err)
	f.subscriptions.AssertCalled(t, "SetCancelRequest", mock.Anything, subID, true)
	f.events.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	f.plans.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestHandleEvent_SubscriptionUpdatedRefreshesRowAfterPlanChange(t *testing.T) {
	f := newWebhookFixture()

	subID := uuid.New()
	customerID := uuid.New()
	newPlanID := uuid.New()
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	event := stripeEvent("evt_14", stripe.EventTypeCustomerSubscriptionUpdated, map[string]interface{}{
		"id":                   "sub_10",
		"cancel_at_period_end": false,
		"current_period_end":   periodEnd,
		"metadata": map[string]string{
			"customerId":         customerID.String(),
			"subscriptionPlanId": newPlanID.String(),
		},
	})

	f.expectBookkeeping(event)
	f.subscriptions.On("GetByStripeSubscriptionID", mock.Anything, "sub_10").
		Return(&model.Subscription{
			ID:                 subID,
			CustomerID:         customerID,
			SubscriptionPlanID: uuid.New(),
			SubscriptionStatus: model.SubscriptionStatusPastDue,
			CancelRequest:      true,
		}, nil)
	f.plans.On("GetByID", mock.Anything, newPlanID).
		Return(&model.SubscriptionPlan{ID: newPlanID, PlanName: "PRO"}, nil)
	f.subscriptions.On("Update", mock.Anything, mock.MatchedBy(func(s *model.Subscription) bool {
		return s.ID == subID &&
			s.SubscriptionStatus == model.SubscriptionStatusActive &&
			s.SubscriptionPlanID == newPlanID &&
			!s.CancelRequest &&
			s.ExpiresAt != nil && s.ExpiresAt.Unix() == periodEnd
	})).Return(nil)
	f.customers.On("SetSubscriptionState", mock.Anything, customerID,
		model.CustomerSubscriptionActive, "PRO").Return(nil)
	f.events.On("MarkProcessed", mock.Anything, "evt_14").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.subscriptions.AssertExpectations(t)
	f.customers.AssertCalled(t, "SetSubscriptionState", mock.Anything, customerID,
		model.CustomerSubscriptionActive, "PRO")
	f.subscriptions.AssertNotCalled(t, "SetCancelRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEvent_SubscriptionCreatedReusesExistingRow(t *testing.T) {
	f := newWebhookFixture()

	rowID := uuid.New()
	customerID := uuid.New()
	planID := uuid.New()
	oldRemoteID := "sub_old"
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	event := stripeEvent("evt_15", stripe.EventTypeCustomerSubscriptionCreated, map[string]interface{}{
		"id":                 "sub_new",
		"current_period_end": periodEnd,
		"customer":           map[string]interface{}{"id": "cus_2"},
		"metadata": map[string]string{
			"customerId":         customerID.String(),
			"subscriptionPlanId": planID.String(),
		},
	})

	customer := &model.Customer{ID: customerID}
	plan := &model.SubscriptionPlan{ID: planID, PlanName: "BASIC"}

	f.expectBookkeeping(event)
	f.customers.On("GetByID", mock.Anything, customerID).Return(customer, nil)
	f.plans.On("GetByID", mock.Anything, planID).Return(plan, nil)
	f.subscriptions.On("GetFirstByCustomer", mock.Anything, customerID).
		Return(&model.Subscription{
			ID:                   rowID,
			CustomerID:           customerID,
			SubscriptionStatus:   model.SubscriptionStatusCancelled,
			StripeCustomerID:     "cus_2",
			StripeSubscriptionID: &oldRemoteID,
		}, nil)
	f.subscriptions.On("Update", mock.Anything, mock.MatchedBy(func(s *model.Subscription) bool {
		return s.ID == rowID &&
			s.SubscriptionStatus == model.SubscriptionStatusActive &&
			s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == "sub_new" &&
			s.SubscriptionPlanID == planID &&
			s.ExpiresAt != nil && s.ExpiresAt.Unix() == periodEnd
	})).Return(nil)
	f.customers.On("SetPlanName", mock.Anything, customerID, "BASIC").Return(nil)
	f.notifier.On("SubscriptionStarted", mock.Anything, customer, "BASIC").Return()
	f.events.On("MarkProcessed", mock.Anything, "evt_15").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	// A new subscription generation rewrites the customer's existing row.
	assert.NoError(t, err)
	f.subscriptions.AssertExpectations(t)
	f.subscriptions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandleEvent_InvoiceSuccessBeforeCreateFallsBackToCustomerRow(t *testing.T) {
	f := newWebhookFixture()

	rowID := uuid.New()
	customerID := uuid.New()
	planID := uuid.New()
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	event := stripeEvent("evt_16", stripe.EventTypeInvoicePaymentSucceeded, map[string]interface{}{
		"id":           "in_3",
		"subscription": map[string]interface{}{"id": "sub_11"},
		"amount_paid":  2900,
		"currency":     "usd",
		"created":      time.Now().Unix(),
	})

	f.expectBookkeeping(event)
	f.gw.On("RetrieveSubscription", mock.Anything, "sub_11").
		Return(&stripe.Subscription{
			ID:               "sub_11",
			CurrentPeriodEnd: periodEnd,
			Metadata: map[string]string{
				"customerId":         customerID.String(),
				"subscriptionPlanId": planID.String(),
			},
		}, nil)
	// The invoice arrived before the created event; no row carries the
	// remote id yet.
	f.subscriptions.On("GetByStripeSubscriptionID", mock.Anything, "sub_11").Return(nil, nil)
	f.subscriptions.On("GetFirstByCustomer", mock.Anything, customerID).
		Return(&model.Subscription{
			ID:                 rowID,
			CustomerID:         customerID,
			SubscriptionPlanID: planID,
			SubscriptionStatus: model.SubscriptionStatusPending,
		}, nil)
	f.subscriptions.On("Update", mock.Anything, mock.MatchedBy(func(s *model.Subscription) bool {
		return s.ID == rowID &&
			s.SubscriptionStatus == model.SubscriptionStatusActive &&
			s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == "sub_11" &&
			s.ExpiresAt != nil && s.ExpiresAt.Unix() == periodEnd
	})).Return(nil)
	f.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Payment) bool {
		return p.SubscriptionID == rowID && p.Status == model.PaymentStatusSucceeded
	})).Return(true, nil)
	f.customers.On("SetSubscriptionStatus", mock.Anything, customerID, model.CustomerSubscriptionActive).Return(nil)
	f.events.On("MarkProcessed", mock.Anything, "evt_16").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.subscriptions.AssertExpectations(t)
	f.payments.AssertExpectations(t)
}

func TestHandleEvent_TrialWillEndSendsReminder(t *testing.T) {
	f := newWebhookFixture()

	customerID := uuid.New()
	planID := uuid.New()
	trialEnd := time.Now().Add(72 * time.Hour).Unix()
	event := stripeEvent("evt_17", stripe.EventTypeCustomerSubscriptionTrialWillEnd, map[string]interface{}{
		"id":        "sub_12",
		"trial_end": trialEnd,
		"metadata": map[string]string{
			"customerId":         customerID.String(),
			"subscriptionPlanId": planID.String(),
		},
	})

	customer := &model.Customer{ID: customerID}

	f.expectBookkeeping(event)
	f.customers.On("GetByID", mock.Anything, customerID).Return(customer, nil)
	f.notifier.On("TrialEnding", mock.Anything, customer, time.Unix(trialEnd, 0)).Return()
	f.events.On("MarkProcessed", mock.Anything, "evt_17").Return(nil)

	err := f.svc.HandleEvent(context.Background(), []byte("{}"), "sig")

	assert.NoError(t, err)
	f.notifier.AssertCalled(t, "TrialEnding", mock.Anything, customer, time.Unix(trialEnd, 0))
	f.subscriptions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.subscriptions.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}
