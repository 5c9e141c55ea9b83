package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tripnest/booking-service/internal/domain/apperrors"
	"github.com/tripnest/booking-service/internal/usecase"
	"go.uber.org/zap"
)

// WebhookHandler receives payment processor deliveries. It answers 400 only
// for signature failures; handler-level problems are recorded on the event
// row and acknowledged with 200 so the processor stops redelivering.
type WebhookHandler struct {
	webhooks *usecase.WebhookService
	logger   *zap.Logger
}

func NewWebhookHandler(webhooks *usecase.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("error reading webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "error reading request body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")

	if err := h.webhooks.HandleEvent(c.Request().Context(), body, sig); err != nil {
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
