package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/tripnest/booking-service/internal/domain/apperrors"
	"github.com/tripnest/booking-service/internal/domain/model"
	"github.com/tripnest/booking-service/internal/middleware/auth"
	"github.com/tripnest/booking-service/internal/usecase"
	"go.uber.org/zap"
)

type BookingHandler struct {
	bookings *usecase.BookingService
	logger   *zap.Logger
}

func NewBookingHandler(bookings *usecase.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

type guestRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Age       int    `json:"age" validate:"gte=0"`
}

type createBookingRequest struct {
	ResourceKind    string         `json:"resourceKind" validate:"required,oneof=TOUR ROOM"`
	ResourceID      string         `json:"resourceId" validate:"required,uuid"`
	PaymentMethodID string         `json:"paymentMethodId"`
	Guests          []guestRequest `json:"guests" validate:"dive"`
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resourceID, err := uuid.Parse(req.ResourceID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "resourceId must be a valid UUID")
	}

	guests := make([]model.Guest, 0, len(req.Guests))
	for _, g := range req.Guests {
		guests = append(guests, model.Guest{
			FirstName: g.FirstName,
			LastName:  g.LastName,
			Age:       g.Age,
		})
	}

	booking, err := h.bookings.CreateBooking(c.Request().Context(), usecase.CreateBookingInput{
		CustomerID:      user.CustomerID,
		ResourceKind:    model.ResourceKind(req.ResourceKind),
		ResourceID:      resourceID,
		PaymentMethodID: req.PaymentMethodID,
		Guests:          guests,
	})
	if err != nil {
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "booking id must be a valid UUID")
	}

	booking, err := h.bookings.GetBooking(c.Request().Context(), id)
	if err != nil {
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) ListTransactions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "booking id must be a valid UUID")
	}

	txns, err := h.bookings.ListTransactions(c.Request().Context(), id)
	if err != nil {
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, txns)
}

type cancelBookingRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "booking id must be a valid UUID")
	}

	var req cancelBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	booking, err := h.bookings.CancelBooking(c.Request().Context(), id, req.Reason)
	if err != nil {
		return apperrors.ToHTTPError(err)
	}

	h.logger.Info("booking cancelled",
		zap.String("booking_id", id.String()))

	return c.JSON(http.StatusOK, booking)
}
