package entity

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type PlanType string
type SubscriptionStatus string

const (
	PlanTypeBasic   PlanType = "basic"
	PlanTypePremium PlanType = "premium"
	PlanTypeVip     PlanType = "vip"

	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

type SubscriptionPlan struct {
	Id             uuid.UUID
	PlanType       PlanType
	Name           string
	Description    string
	Amount         float64
	Currency       string
	DurationMonths int
	Details        map[string]interface{}
	Active         bool

	// Processor linkage, attached after the plan is synced to Stripe.
	StripeProductId *string
	StripePriceId   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AmountMinorUnits converts the decimal price to the smallest currency unit.
func (p *SubscriptionPlan) AmountMinorUnits() int64 {
	return int64(math.Round(p.Amount * 100))
}

// Purchasable reports whether a checkout session can be created for this
// plan. A plan without a synced Stripe price cannot be sold.
func (p *SubscriptionPlan) Purchasable() bool {
	return p.Active && p.StripePriceId != nil && *p.StripePriceId != ""
}

// UserSubscription is the single entitlement record per user (1:1).
// Rows are never hard-deleted; history is retained for audit.
type UserSubscription struct {
	Id     uuid.UUID
	UserId uuid.UUID
	PlanId *uuid.UUID
	Status SubscriptionStatus

	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time

	StripeCustomerId        *string
	StripeCheckoutSessionId *string
	StripePaymentIntentId   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsUsable reports whether the subscription grants access at the given
// instant. Expiry is observed lazily here; persisting the inactive status
// is a separate explicit transition, never a side effect of a read.
func (s *UserSubscription) IsUsable(now time.Time) bool {
	if s == nil || s.Status != SubscriptionStatusActive {
		return false
	}
	if s.SubscriptionEnd != nil && now.After(*s.SubscriptionEnd) {
		return false
	}
	return true
}
