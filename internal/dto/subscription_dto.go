package dto

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutResponse carries the hosted payment page reference back to the
// purchaser. The session id is already persisted before this is returned.
type CheckoutResponse struct {
	CheckoutUrl string `json:"checkout_url"`
	SessionId   string `json:"session_id"`
}

type SubscriptionResponse struct {
	Id                uuid.UUID     `json:"id"`
	Plan              *PlanResponse `json:"plan,omitempty"`
	Status            string        `json:"status"`
	SubscriptionStart *time.Time    `json:"subscription_start,omitempty"`
	SubscriptionEnd   *time.Time    `json:"subscription_end,omitempty"`
	IsUsable          bool          `json:"is_usable"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// SubscriptionValidationResponse is the lazy-expiry check consumed by the
// client to decide whether to prompt for renewal. No cronjob involved.
type SubscriptionValidationResponse struct {
	IsValid          bool       `json:"is_valid"`
	Status           string     `json:"status"`
	RenewalRequired  bool       `json:"renewal_required"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	DaysRemaining    int        `json:"days_remaining"`
	PlanName         string     `json:"plan_name,omitempty"`
}

// SubscriptionActivatedMessage is the in-process receipt pipeline payload.
type SubscriptionActivatedMessage struct {
	UserId    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	PlanName  string    `json:"plan_name"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	PeriodEnd time.Time `json:"period_end"`
}
