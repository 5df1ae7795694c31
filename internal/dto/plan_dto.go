package dto

import (
	"time"

	"github.com/google/uuid"
)

// PlanResponse is the public projection of a subscription plan.
type PlanResponse struct {
	Id             uuid.UUID              `json:"id"`
	PlanType       string                 `json:"plan_type"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Amount         float64                `json:"amount"`
	Currency       string                 `json:"currency"`
	DurationMonths int                    `json:"duration_months"`
	Details        map[string]interface{} `json:"details,omitempty"`
	Active         bool                   `json:"active"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// AdminPlanResponse adds the processor linkage for admin views.
type AdminPlanResponse struct {
	PlanResponse
	StripeProductId *string `json:"stripe_product_id,omitempty"`
	StripePriceId   *string `json:"stripe_price_id,omitempty"`
}

type PlanCreateRequest struct {
	PlanType       string                 `json:"plan_type" validate:"required,oneof=basic premium vip"`
	Name           string                 `json:"name" validate:"required,max=100"`
	Description    string                 `json:"description,omitempty"`
	Amount         float64                `json:"amount" validate:"required"`
	Currency       string                 `json:"currency,omitempty"`
	DurationMonths int                    `json:"duration_months" validate:"required"`
	Details        map[string]interface{} `json:"details,omitempty"`
	Active         *bool                  `json:"active,omitempty"`
}

type PlanUpdateRequest struct {
	Name           *string                `json:"name,omitempty" validate:"omitempty,max=100"`
	Description    *string                `json:"description,omitempty"`
	Amount         *float64               `json:"amount,omitempty"`
	Currency       *string                `json:"currency,omitempty"`
	DurationMonths *int                   `json:"duration_months,omitempty"`
	Details        map[string]interface{} `json:"details,omitempty"`
	Active         *bool                  `json:"active,omitempty"`
}
