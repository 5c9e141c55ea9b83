package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/tripnest/booking-service/internal/domain/apperrors"
	"github.com/tripnest/booking-service/internal/domain/model"
	"github.com/tripnest/booking-service/internal/usecase"
	"go.uber.org/zap"
)

type PlansHandler struct {
	plans  *usecase.PlanService
	logger *zap.Logger
}

func NewPlansHandler(plans *usecase.PlanService, logger *zap.Logger) *PlansHandler {
	return &PlansHandler{plans: plans, logger: logger}
}

func (h *PlansHandler) GetPlans(c echo.Context) error {
	plans, err := h.plans.ListPlans(c.Request().Context())
	if err != nil {
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, plans)
}

type createPlanRequest struct {
	PlanName        string `json:"planName" validate:"required,max=50"`
	Description     string `json:"description" validate:"max=500"`
	Interval        string `json:"interval" validate:"required,oneof=MONTH YEAR"`
	Price           string `json:"price" validate:"required"`
	TrialPeriodDays int64  `json:"trialPeriodDays" validate:"gte=0"`
}

// CreatePlan registers a plan in the catalogue. Admin only; the route group
// enforces the role.
func (h *PlansHandler) CreatePlan(c echo.Context) error {
	var req createPlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be a non-negative decimal")
	}

	plan, err := h.plans.CreatePlan(c.Request().Context(), usecase.CreatePlanInput{
		PlanName:        req.PlanName,
		Description:     req.Description,
		Interval:        model.PlanInterval(req.Interval),
		Price:           price,
		TrialPeriodDays: req.TrialPeriodDays,
	})
	if err != nil {
		return apperrors.ToHTTPError(err)
	}

	h.logger.Info("plan registered",
		zap.String("plan", plan.PlanName))

	return c.JSON(http.StatusCreated, plan)
}
