package mapper

import (
	"heartlink-be/internal/entity"
	"heartlink-be/internal/model"

	"gorm.io/datatypes"
)

type SubscriptionMapper struct{}

func NewSubscriptionMapper() *SubscriptionMapper {
	return &SubscriptionMapper{}
}

func (m *SubscriptionMapper) PlanToEntity(p *model.SubscriptionPlan) *entity.SubscriptionPlan {
	if p == nil {
		return nil
	}
	return &entity.SubscriptionPlan{
		Id:              p.Id,
		PlanType:        entity.PlanType(p.PlanType),
		Name:            p.Name,
		Description:     p.Description,
		Amount:          p.Amount,
		Currency:        p.Currency,
		DurationMonths:  p.DurationMonths,
		Details:         map[string]interface{}(p.Details),
		Active:          p.Active,
		StripeProductId: p.StripeProductId,
		StripePriceId:   p.StripePriceId,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (m *SubscriptionMapper) PlanToModel(p *entity.SubscriptionPlan) *model.SubscriptionPlan {
	if p == nil {
		return nil
	}
	return &model.SubscriptionPlan{
		Id:              p.Id,
		PlanType:        string(p.PlanType),
		Name:            p.Name,
		Description:     p.Description,
		Amount:          p.Amount,
		Currency:        p.Currency,
		DurationMonths:  p.DurationMonths,
		Details:         datatypes.JSONMap(p.Details),
		Active:          p.Active,
		StripeProductId: p.StripeProductId,
		StripePriceId:   p.StripePriceId,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (m *SubscriptionMapper) SubscriptionToEntity(s *model.UserSubscription) *entity.UserSubscription {
	if s == nil {
		return nil
	}
	return &entity.UserSubscription{
		Id:                      s.Id,
		UserId:                  s.UserId,
		PlanId:                  s.PlanId,
		Status:                  entity.SubscriptionStatus(s.Status),
		SubscriptionStart:       s.SubscriptionStart,
		SubscriptionEnd:         s.SubscriptionEnd,
		StripeCustomerId:        s.StripeCustomerId,
		StripeCheckoutSessionId: s.StripeCheckoutSessionId,
		StripePaymentIntentId:   s.StripePaymentIntentId,
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) SubscriptionToModel(s *entity.UserSubscription) *model.UserSubscription {
	if s == nil {
		return nil
	}
	return &model.UserSubscription{
		Id:                      s.Id,
		UserId:                  s.UserId,
		PlanId:                  s.PlanId,
		Status:                  string(s.Status),
		SubscriptionStart:       s.SubscriptionStart,
		SubscriptionEnd:         s.SubscriptionEnd,
		StripeCustomerId:        s.StripeCustomerId,
		StripeCheckoutSessionId: s.StripeCheckoutSessionId,
		StripePaymentIntentId:   s.StripePaymentIntentId,
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
}
