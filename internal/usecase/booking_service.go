package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tripnest/booking-service/internal/domain/apperrors"
	"github.com/tripnest/booking-service/internal/domain/gateway"
	"github.com/tripnest/booking-service/internal/domain/model"
	"github.com/tripnest/booking-service/internal/domain/repository"
	"go.uber.org/zap"
)

// BookingService coordinates reservations for tours and rooms. A single
// implementation serves both resource kinds because the coordinator only
// needs the Reservable capability (identity and price).
type BookingService struct {
	customers     repository.CustomerRepository
	resources     repository.ResourceRepository
	bookings      repository.BookingRepository
	transactions  repository.TransactionRepository
	subscriptions repository.SubscriptionRepository
	gateway       gateway.PaymentGateway
	tx            repository.TxManager
	logger        *zap.Logger
}

func NewBookingService(
	customers repository.CustomerRepository,
	resources repository.ResourceRepository,
	bookings repository.BookingRepository,
	transactions repository.TransactionRepository,
	subscriptions repository.SubscriptionRepository,
	gw gateway.PaymentGateway,
	tx repository.TxManager,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		customers:     customers,
		resources:     resources,
		bookings:      bookings,
		transactions:  transactions,
		subscriptions: subscriptions,
		gateway:       gw,
		tx:            tx,
		logger:        logger,
	}
}

// CreateBookingInput carries everything the coordinator needs. The payment
// method is optional; it is only required when no active subscription covers
// the reservation.
type CreateBookingInput struct {
	CustomerID      uuid.UUID
	ResourceKind    model.ResourceKind
	ResourceID      uuid.UUID
	PaymentMethodID string
	Guests          []model.Guest
}

// CreateBooking reserves a resource for a customer. Subscription-covered
// bookings become ACTIVE immediately with no remote call; single payments
// leave a PENDING booking and a PROCESSING transaction behind, which the
// webhook reconciler settles once the processor reports the outcome.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	customer, err := s.customers.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load customer")
	}
	if customer == nil {
		return nil, apperrors.NotFound("customer not found")
	}

	resource, err := s.resources.Get(ctx, in.ResourceKind, in.ResourceID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load resource")
	}
	if resource == nil {
		return nil, apperrors.NotFound("bookable resource not found")
	}

	activeSub, err := s.subscriptions.GetActiveByCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to check subscription")
	}

	if activeSub != nil {
		return s.createCoveredBooking(ctx, in)
	}

	if strings.TrimSpace(in.PaymentMethodID) == "" {
		return nil, apperrors.InvalidRequest("payment method is required for bookings without an active subscription")
	}

	return s.createSinglePaymentBooking(ctx, in, resource)
}

// createCoveredBooking handles the subscription path: the booking activates
// synchronously and no transaction or remote resource is created.
func (s *BookingService) createCoveredBooking(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	booking := &model.Booking{
		CustomerID:    in.CustomerID,
		ResourceKind:  in.ResourceKind,
		ResourceID:    in.ResourceID,
		PaymentSource: model.PaymentSourceSubscription,
		Status:        model.BookingStatusActive,
		Guests:        in.Guests,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, apperrors.Wrap(err, "failed to create booking")
	}

	s.logger.Info("booking covered by subscription",
		zap.String("booking_id", booking.ID.String()),
		zap.String("customer_id", in.CustomerID.String()))

	return booking, nil
}

// createSinglePaymentBooking handles the point-of-sale path. The booking row
// is written first, in its own local write, so its id exists to tag the
// payment intent before any remote call is made.
func (s *BookingService) createSinglePaymentBooking(ctx context.Context, in CreateBookingInput, resource model.Reservable) (*model.Booking, error) {
	booking := &model.Booking{
		CustomerID:    in.CustomerID,
		ResourceKind:  in.ResourceKind,
		ResourceID:    in.ResourceID,
		PaymentSource: model.PaymentSourceSingle,
		Status:        model.BookingStatusPending,
		Guests:        in.Guests,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, apperrors.Wrap(err, "failed to create booking")
	}

	price := resource.ReservablePrice()
	amountCents := price.Shift(2).IntPart()

	comp := &Compensations{}

	err := s.tx.Do(ctx, func(txCtx context.Context) error {
		intent, err := s.gateway.CreatePaymentIntent(ctx, gateway.CreateIntentRequest{
			Amount:   amountCents,
			Currency: "usd",
			Metadata: map[string]string{
				"bookingId":  booking.ID.String(),
				"customerId": in.CustomerID.String(),
			},
		})
		if err != nil {
			return apperrors.Wrap(err, "failed to create payment intent")
		}

		comp.Add("cancel payment intent "+intent.ID, func(undoCtx context.Context) error {
			return s.gateway.CancelPaymentIntent(undoCtx, intent.ID)
		})

		txn := &model.Transaction{
			BookingID:       booking.ID,
			CustomerID:      in.CustomerID,
			Amount:          price,
			Currency:        "USD",
			PaymentMethodID: intent.ID,
			Status:          model.TransactionStatusProcessing,
		}
		if err := s.transactions.Create(txCtx, txn); err != nil {
			return apperrors.Wrap(err, "failed to record transaction")
		}

		if _, err := s.gateway.ConfirmPaymentIntent(ctx, intent.ID, in.PaymentMethodID); err != nil {
			return apperrors.Wrap(err, "failed to confirm payment intent")
		}

		return nil
	})
	if err != nil {
		// The local transaction has rolled back; undo the remote side
		// effects best-effort. The webhook reconciler remains the ultimate
		// authority if the cancel does not land.
		comp.Run(ctx, s.logger)

		apperrors.LogError(s.logger, err, "booking payment flow failed",
			zap.String("booking_id", booking.ID.String()))
		return nil, apperrors.NewAppError(apperrors.ErrInternal, "booking payment failed", err)
	}

	s.logger.Info("booking pending settlement",
		zap.String("booking_id", booking.ID.String()),
		zap.String("customer_id", in.CustomerID.String()),
		zap.Int64("amount_cents", amountCents))

	return booking, nil
}

// GetBooking loads a booking with its guests and transactions.
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load booking")
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}
	return booking, nil
}

// ListTransactions returns the payment attempts recorded for a booking in
// chronological order.
func (s *BookingService) ListTransactions(ctx context.Context, bookingID uuid.UUID) ([]*model.Transaction, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load booking")
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	txns, err := s.transactions.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list transactions")
	}
	return txns, nil
}

// CancelBooking records a customer cancellation. Refunds are a separate flow;
// remote state is not touched here.
func (s *BookingService) CancelBooking(ctx context.Context, id uuid.UUID, reason string) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load booking")
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}
	if booking.IsCancelled {
		return nil, apperrors.Conflict("booking already cancelled")
	}

	if err := s.bookings.Cancel(ctx, id, reason); err != nil {
		return nil, apperrors.Wrap(err, "failed to cancel booking")
	}

	booking.IsCancelled = true
	booking.CancelReason = reason
	return booking, nil
}
