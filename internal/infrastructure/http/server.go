package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/tripnest/booking-service/internal/adapter/handler/http"
	"github.com/tripnest/booking-service/internal/config"
	"github.com/tripnest/booking-service/internal/domain/gateway"
	"github.com/tripnest/booking-service/internal/infrastructure/database"
	"github.com/tripnest/booking-service/internal/middleware/auth"
	"github.com/tripnest/booking-service/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	config  *config.Config
	logger  *zap.Logger
	echo    *echo.Echo
	repos   *database.Repositories
	gateway gateway.PaymentGateway
}

func NewServer(cfg *config.Config, logger *zap.Logger, repos *database.Repositories, gw gateway.PaymentGateway) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.PATCH, echo.DELETE},
	}))

	return &Server{
		config:  cfg,
		logger:  logger,
		echo:    e,
		repos:   repos,
		gateway: gw,
	}
}

func (s *Server) Start() error {
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	notifier := usecase.NewLogNotifier(s.logger)

	bookingService := usecase.NewBookingService(
		s.repos.Customer, s.repos.Resource, s.repos.Booking,
		s.repos.Transaction, s.repos.Subscription,
		s.gateway, s.repos.Tx, s.logger)
	subscriptionService := usecase.NewSubscriptionService(
		s.repos.Customer, s.repos.Plan, s.repos.Subscription,
		s.repos.Payment, s.gateway, s.logger)
	planService := usecase.NewPlanService(s.repos.Plan, s.gateway, s.logger)
	webhookService := usecase.NewWebhookService(
		s.gateway, s.repos.Webhook, s.repos.Booking, s.repos.Transaction,
		s.repos.Subscription, s.repos.Plan, s.repos.Customer, s.repos.Payment,
		s.repos.Tx, notifier, s.logger)

	bookingHandler := handlers.NewBookingHandler(bookingService, s.logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService, s.logger)
	plansHandler := handlers.NewPlansHandler(planService, s.logger)
	webhookHandler := handlers.NewWebhookHandler(webhookService, s.logger)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/api/v1/bookings/stripe/webhook",
			"/api/v1/subscriptions/stripe/webhook",
		},
	}

	v1 := s.echo.Group("/api/v1")

	// Webhook endpoints authenticate via the Stripe signature, not JWT.
	v1.POST("/bookings/stripe/webhook", webhookHandler.HandleWebhook)
	v1.POST("/subscriptions/stripe/webhook", webhookHandler.HandleWebhook)

	// Plan catalogue is public for browsing.
	v1.GET("/plans", plansHandler.GetPlans)

	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	bookings := protected.Group("/bookings")
	bookings.POST("", bookingHandler.CreateBooking)
	bookings.GET("/:id", bookingHandler.GetBooking)
	bookings.GET("/:id/transactions", bookingHandler.ListTransactions)
	bookings.PATCH("/:id/cancel", bookingHandler.CancelBooking)

	subscriptions := protected.Group("/subscriptions")
	subscriptions.POST("", subscriptionHandler.Subscribe)
	subscriptions.GET("", subscriptionHandler.List)
	subscriptions.GET("/:customerId/payments", subscriptionHandler.BillingHistory)
	subscriptions.PATCH("/:customerId", subscriptionHandler.ChangePlan)
	subscriptions.PATCH("/cancel/:customerId", subscriptionHandler.Cancel)

	admin := protected.Group("", s.requireAdmin())
	admin.POST("/plans", plansHandler.CreatePlan)
}

func (s *Server) requireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := auth.GetUserFromContext(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if user.Role != string(usecase.RoleAdmin) {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}
			return next(c)
		}
	}
}
