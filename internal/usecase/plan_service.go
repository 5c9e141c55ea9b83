package usecase

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tripnest/booking-service/internal/domain/apperrors"
	"github.com/tripnest/booking-service/internal/domain/gateway"
	"github.com/tripnest/booking-service/internal/domain/model"
	"github.com/tripnest/booking-service/internal/domain/repository"
	"go.uber.org/zap"
)

// PlanService manages the subscription plan catalogue.
type PlanService struct {
	plans   repository.PlanRepository
	gateway gateway.PaymentGateway
	logger  *zap.Logger
}

func NewPlanService(plans repository.PlanRepository, gw gateway.PaymentGateway, logger *zap.Logger) *PlanService {
	return &PlanService{
		plans:   plans,
		gateway: gw,
		logger:  logger,
	}
}

type CreatePlanInput struct {
	PlanName        string
	Description     string
	Interval        model.PlanInterval
	Price           decimal.Decimal
	TrialPeriodDays int64
}

// CreatePlan registers a plan locally and, unless it is the FREE plan,
// creates the backing recurring price at the payment processor.
func (s *PlanService) CreatePlan(ctx context.Context, in CreatePlanInput) (*model.SubscriptionPlan, error) {
	existing, err := s.plans.GetByName(ctx, in.PlanName)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to check plan name")
	}
	if existing != nil {
		return nil, apperrors.Conflict("a subscription plan with the same name already exists")
	}

	plan := &model.SubscriptionPlan{
		PlanName:        in.PlanName,
		Description:     in.Description,
		Plan:            in.Interval,
		Price:           in.Price,
		TrialPeriodDays: in.TrialPeriodDays,
		Status:          model.PlanStatusActive,
	}

	if in.PlanName == model.FreePlanName {
		plan.Price = decimal.Zero
		if err := s.plans.Create(ctx, plan); err != nil {
			return nil, apperrors.Wrap(err, "failed to create plan")
		}
		return plan, nil
	}

	price, err := s.gateway.CreatePrice(ctx, gateway.CreatePriceRequest{
		UnitAmount:  in.Price.Shift(2).IntPart(),
		Currency:    "usd",
		Interval:    in.Interval.StripeInterval(),
		ProductName: in.PlanName,
		Metadata: map[string]string{
			"description": in.Description,
		},
	})
	if err != nil {
		apperrors.LogError(s.logger, err, "remote price creation failed",
			zap.String("plan", in.PlanName))
		return nil, apperrors.NewAppError(apperrors.ErrInternal, "failed to create plan price", err)
	}

	plan.StripePriceID = &price.ID

	if err := s.plans.Create(ctx, plan); err != nil {
		// Stripe prices are immutable and cannot be deleted; the orphaned
		// price is inert and reusable on retry.
		apperrors.LogError(s.logger, err, "plan creation failed after remote price was created",
			zap.String("plan", in.PlanName),
			zap.String("stripe_price_id", price.ID))
		return nil, apperrors.Wrap(err, "failed to create plan")
	}

	s.logger.Info("plan created",
		zap.String("plan", plan.PlanName),
		zap.String("stripe_price_id", price.ID))

	return plan, nil
}

var planDisplayOrder = map[string]int{
	"FREE":    0,
	"BASIC":   1,
	"PREMIUM": 2,
	"PRO":     3,
}

// ListPlans returns active plans in catalogue display order.
func (s *PlanService) ListPlans(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list plans")
	}

	sort.SliceStable(plans, func(i, j int) bool {
		oi, iok := planDisplayOrder[plans[i].PlanName]
		oj, jok := planDisplayOrder[plans[j].PlanName]
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return plans[i].PlanName < plans[j].PlanName
	})

	return plans, nil
}
