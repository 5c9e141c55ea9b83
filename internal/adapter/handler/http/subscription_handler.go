package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/tripnest/booking-service/internal/domain/apperrors"
	"github.com/tripnest/booking-service/internal/middleware/auth"
	"github.com/tripnest/booking-service/internal/usecase"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	subscriptions *usecase.SubscriptionService
	logger        *zap.Logger
}

func NewSubscriptionHandler(subscriptions *usecase.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, logger: logger}
}

func requesterFrom(user *auth.AuthUser) usecase.Requester {
	role := usecase.RoleCustomer
	if user.Role == string(usecase.RoleAdmin) {
		role = usecase.RoleAdmin
	}
	return usecase.Requester{CustomerID: user.CustomerID, Role: role}
}

type subscribeRequest struct {
	PlanID          string `json:"planId" validate:"required,uuid"`
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
}

func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "planId must be a valid UUID")
	}

	sub, err := h.subscriptions.Subscribe(c.Request().Context(), usecase.SubscribeInput{
		CustomerID:      user.CustomerID,
		PlanID:          planID,
		PaymentMethodID: req.PaymentMethodID,
		Name:            req.Name,
		Email:           req.Email,
	})
	if err != nil {
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"subscriptionId": sub.ID,
		"status":         sub.Status,
	})
}

type changePlanRequest struct {
	NewPlanID string `json:"newPlanId" validate:"required,uuid"`
}

// ChangePlan swaps the caller's active subscription to another plan. The
// path carries the customer whose subscription changes; admins may act on
// any customer.
func (h *SubscriptionHandler) ChangePlan(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	customerID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "customer id must be a valid UUID")
	}

	var req changePlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	newPlanID, err := uuid.Parse(req.NewPlanID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "newPlanId must be a valid UUID")
	}

	sub, err := h.subscriptions.ChangePlan(c.Request().Context(), customerID,
		usecase.ChangePlanInput{NewPlanID: newPlanID}, requesterFrom(user))
	if err != nil {
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"subscriptionId": sub.ID,
		"status":         sub.Status,
	})
}

type cancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId" validate:"required,uuid"`
}

func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	customerID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "customer id must be a valid UUID")
	}

	var req cancelSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	subscriptionID, err := uuid.Parse(req.SubscriptionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "subscriptionId must be a valid UUID")
	}

	if err := h.subscriptions.Cancel(c.Request().Context(), customerID, subscriptionID, requesterFrom(user)); err != nil {
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "subscription will be cancelled at the end of the current period",
	})
}

// BillingHistory lists the invoice payments recorded for the customer's
// subscription. Customers may only read their own ledger.
func (h *SubscriptionHandler) BillingHistory(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	customerID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "customer id must be a valid UUID")
	}

	payments, err := h.subscriptions.BillingHistory(c.Request().Context(), customerID, requesterFrom(user))
	if err != nil {
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, payments)
}

func (h *SubscriptionHandler) List(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	subs, err := h.subscriptions.List(c.Request().Context(), requesterFrom(user))
	if err != nil {
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, subs)
}
