package service

import (
	"context"
	"fmt"
	"time"

	"heartlink-be/internal/dto"
	"heartlink-be/internal/entity"
	"heartlink-be/internal/pkg/apperrors"
	"heartlink-be/internal/pkg/logger"
	"heartlink-be/internal/pkg/paymentgw"
	"heartlink-be/internal/repository/specification"
	"heartlink-be/internal/repository/unitofwork"
	"heartlink-be/pkg/events"
	pkgNats "heartlink-be/pkg/nats"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const (
	activePlansCacheKey = "plans:active"
	planCacheTTL        = 5 * time.Minute
)

type IPlanService interface {
	GetActivePlans(ctx context.Context) ([]*dto.PlanResponse, error)
	GetActivePlan(ctx context.Context, planId uuid.UUID) (*dto.PlanResponse, error)
	CreatePlan(ctx context.Context, req *dto.PlanCreateRequest) (*dto.AdminPlanResponse, error)
	UpdatePlan(ctx context.Context, planId uuid.UUID, req *dto.PlanUpdateRequest) (*dto.AdminPlanResponse, error)
}

type planService struct {
	uowFactory     unitofwork.RepositoryFactory
	gateway        paymentgw.Gateway
	log            logger.ILogger
	cache          *gocache.Cache
	eventPublisher *pkgNats.Publisher
}

func NewPlanService(
	uowFactory unitofwork.RepositoryFactory,
	gateway paymentgw.Gateway,
	log logger.ILogger,
	cache *gocache.Cache,
	eventPublisher *pkgNats.Publisher,
) IPlanService {
	return &planService{
		uowFactory:     uowFactory,
		gateway:        gateway,
		log:            log,
		cache:          cache,
		eventPublisher: eventPublisher,
	}
}

func (s *planService) GetActivePlans(ctx context.Context) ([]*dto.PlanResponse, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(activePlansCacheKey); found {
			return cached.([]*dto.PlanResponse), nil
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	plans, err := uow.PlanRepository().FindAll(ctx,
		specification.ActiveOnly{},
		specification.OrderBy{Field: "amount", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		res = append(res, planToResponse(p))
	}

	if s.cache != nil {
		s.cache.Set(activePlansCacheKey, res, planCacheTTL)
	}
	return res, nil
}

func (s *planService) GetActivePlan(ctx context.Context, planId uuid.UUID) (*dto.PlanResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: planId})
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.Active {
		return nil, fmt.Errorf("%w: plan %s", apperrors.ErrNotFound, planId)
	}
	return planToResponse(plan), nil
}

// CreatePlan persists the plan locally first, then syncs it to the payment
// processor. A processor failure triggers a compensating delete so the store
// never keeps a sellable plan without a price.
func (s *planService) CreatePlan(ctx context.Context, req *dto.PlanCreateRequest) (*dto.AdminPlanResponse, error) {
	if err := validatePlanPricing(req.Amount, req.DurationMonths); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.PlanRepository().FindOne(ctx, specification.ByPlanType{PlanType: req.PlanType})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: plan type %q already exists", apperrors.ErrConflict, req.PlanType)
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	plan := &entity.SubscriptionPlan{
		Id:             uuid.New(),
		PlanType:       entity.PlanType(req.PlanType),
		Name:           req.Name,
		Description:    req.Description,
		Amount:         req.Amount,
		Currency:       currency,
		DurationMonths: req.DurationMonths,
		Details:        req.Details,
		Active:         active,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := uow.PlanRepository().Create(ctx, plan); err != nil {
		return nil, err
	}

	productId, priceId, gwErr := s.gateway.CreateProductAndPrice(ctx, plan)
	if gwErr != nil {
		if delErr := uow.PlanRepository().Delete(ctx, plan.Id); delErr != nil {
			s.log.Error("plan_service", "compensating delete failed after processor sync error", map[string]interface{}{
				"plan_id":      plan.Id,
				"sync_error":   gwErr.Error(),
				"delete_error": delErr.Error(),
			})
		}
		return nil, fmt.Errorf("%w: product sync: %v", apperrors.ErrProcessor, gwErr)
	}

	plan.StripeProductId = &productId
	plan.StripePriceId = &priceId
	if err := uow.PlanRepository().Update(ctx, plan); err != nil {
		// The processor now holds a product our store does not reference.
		// Surface loudly; this needs operator attention, not a silent retry.
		s.log.Error("plan_service", "failed to persist processor linkage, product orphaned", map[string]interface{}{
			"plan_id":    plan.Id,
			"product_id": productId,
			"price_id":   priceId,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.invalidatePlanCache()
	s.publishPlanEvent(ctx, "PLAN_SYNCED", plan)
	s.log.Info("plan_service", "plan created and synced", map[string]interface{}{
		"plan_id":    plan.Id,
		"plan_type":  plan.PlanType,
		"product_id": productId,
		"price_id":   priceId,
	})

	return planToAdminResponse(plan), nil
}

// UpdatePlan applies the change locally, then reconciles the processor side.
// Processor prices are immutable: an amount or currency change retires the
// old price and creates a fresh one. Partial processor failures keep whatever
// succeeded and are surfaced to the caller; nothing is rolled back locally.
func (s *planService) UpdatePlan(ctx context.Context, planId uuid.UUID, req *dto.PlanUpdateRequest) (*dto.AdminPlanResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: planId})
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: plan %s", apperrors.ErrNotFound, planId)
	}

	newAmount := plan.Amount
	if req.Amount != nil {
		newAmount = *req.Amount
	}
	newMonths := plan.DurationMonths
	if req.DurationMonths != nil {
		newMonths = *req.DurationMonths
	}
	if err := validatePlanPricing(newAmount, newMonths); err != nil {
		return nil, err
	}

	metadataChanged := (req.Name != nil && *req.Name != plan.Name) ||
		(req.Description != nil && *req.Description != plan.Description) ||
		(req.Active != nil && *req.Active != plan.Active)
	priceChanged := (req.Amount != nil && *req.Amount != plan.Amount) ||
		(req.Currency != nil && *req.Currency != plan.Currency)

	if req.Active != nil && !*req.Active && plan.Active {
		// Plans are never hard-deleted while referenced; deactivation keeps
		// existing subscriptions valid until they run out.
		refs, err := uow.PlanRepository().CountSubscriptionsReferencing(ctx, plan.Id)
		if err != nil {
			return nil, err
		}
		if refs > 0 {
			s.log.Info("plan_service", "deactivating plan still referenced by subscriptions", map[string]interface{}{
				"plan_id":       plan.Id,
				"subscriptions": refs,
			})
		}
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.Amount != nil {
		plan.Amount = *req.Amount
	}
	if req.Currency != nil {
		plan.Currency = *req.Currency
	}
	if req.DurationMonths != nil {
		plan.DurationMonths = *req.DurationMonths
	}
	if req.Details != nil {
		plan.Details = req.Details
	}
	if req.Active != nil {
		plan.Active = *req.Active
	}
	plan.UpdatedAt = time.Now()

	if err := uow.PlanRepository().Update(ctx, plan); err != nil {
		return nil, err
	}
	s.invalidatePlanCache()

	if metadataChanged && plan.StripeProductId != nil {
		upd := paymentgw.ProductUpdate{
			Name:        req.Name,
			Description: req.Description,
			Active:      req.Active,
		}
		if err := s.gateway.UpdateProductMetadata(ctx, *plan.StripeProductId, upd); err != nil {
			return nil, fmt.Errorf("%w: product metadata sync: %v", apperrors.ErrProcessor, err)
		}
	}

	if priceChanged && plan.StripeProductId != nil {
		if plan.StripePriceId != nil {
			if err := s.gateway.RetirePrice(ctx, *plan.StripePriceId); err != nil {
				// The retired flag is advisory; the new price below is what
				// checkout sessions use. Keep going.
				s.log.Warn("plan_service", "failed to retire old price", map[string]interface{}{
					"plan_id":  plan.Id,
					"price_id": *plan.StripePriceId,
					"error":    err.Error(),
				})
			}
		}

		priceId, err := s.gateway.CreatePrice(ctx, *plan.StripeProductId, plan.AmountMinorUnits(), plan.Currency)
		if err != nil {
			return nil, fmt.Errorf("%w: price sync: %v", apperrors.ErrProcessor, err)
		}
		plan.StripePriceId = &priceId
		if err := uow.PlanRepository().Update(ctx, plan); err != nil {
			s.log.Error("plan_service", "new price created but not persisted", map[string]interface{}{
				"plan_id":  plan.Id,
				"price_id": priceId,
				"error":    err.Error(),
			})
			return nil, err
		}
	}

	s.invalidatePlanCache()
	s.publishPlanEvent(ctx, "PLAN_UPDATED", plan)
	s.log.Info("plan_service", "plan updated", map[string]interface{}{
		"plan_id":          plan.Id,
		"metadata_changed": metadataChanged,
		"price_changed":    priceChanged,
	})

	return planToAdminResponse(plan), nil
}

func (s *planService) invalidatePlanCache() {
	if s.cache != nil {
		s.cache.Delete(activePlansCacheKey)
	}
}

func (s *planService) publishPlanEvent(ctx context.Context, eventType string, plan *entity.SubscriptionPlan) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"plan_id":   plan.Id,
			"plan_type": plan.PlanType,
			"amount":    plan.Amount,
			"currency":  plan.Currency,
			"active":    plan.Active,
		},
		OccurredAt: time.Now(),
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.log.Warn("plan_service", "failed to publish plan event", map[string]interface{}{
			"event_type": eventType,
			"plan_id":    plan.Id,
			"error":      err.Error(),
		})
	}
}

func validatePlanPricing(amount float64, durationMonths int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if durationMonths <= 0 {
		return fmt.Errorf("%w: duration_months must be positive", apperrors.ErrValidation)
	}
	return nil
}

func planToResponse(p *entity.SubscriptionPlan) *dto.PlanResponse {
	return &dto.PlanResponse{
		Id:             p.Id,
		PlanType:       string(p.PlanType),
		Name:           p.Name,
		Description:    p.Description,
		Amount:         p.Amount,
		Currency:       p.Currency,
		DurationMonths: p.DurationMonths,
		Details:        p.Details,
		Active:         p.Active,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func planToAdminResponse(p *entity.SubscriptionPlan) *dto.AdminPlanResponse {
	return &dto.AdminPlanResponse{
		PlanResponse:    *planToResponse(p),
		StripeProductId: p.StripeProductId,
		StripePriceId:   p.StripePriceId,
	}
}
