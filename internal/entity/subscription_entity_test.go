package entity

import (
	"testing"
	"time"
)

func TestUserSubscriptionIsUsable(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  *UserSubscription
		want bool
	}{
		{
			name: "nil subscription",
			sub:  nil,
			want: false,
		},
		{
			name: "active within window",
			sub:  &UserSubscription{Status: SubscriptionStatusActive, SubscriptionEnd: &future},
			want: true,
		},
		{
			name: "active with past end",
			sub:  &UserSubscription{Status: SubscriptionStatusActive, SubscriptionEnd: &past},
			want: false,
		},
		{
			name: "active with no end",
			sub:  &UserSubscription{Status: SubscriptionStatusActive},
			want: true,
		},
		{
			name: "inactive within window",
			sub:  &UserSubscription{Status: SubscriptionStatusInactive, SubscriptionEnd: &future},
			want: false,
		},
		{
			name: "canceled within window",
			sub:  &UserSubscription{Status: SubscriptionStatusCanceled, SubscriptionEnd: &future},
			want: false,
		},
		{
			name: "end exactly now",
			sub:  &UserSubscription{Status: SubscriptionStatusActive, SubscriptionEnd: &now},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.IsUsable(now); got != tt.want {
				t.Errorf("IsUsable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubscriptionPlanAmountMinorUnits(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{9.99, 999},
		{24.99, 2499},
		{79.99, 7999},
		{10.0, 1000},
		{0.1, 10},
	}

	for _, tt := range tests {
		p := &SubscriptionPlan{Amount: tt.amount}
		if got := p.AmountMinorUnits(); got != tt.want {
			t.Errorf("AmountMinorUnits(%v) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}

func TestSubscriptionPlanPurchasable(t *testing.T) {
	price := "price_123"
	empty := ""

	tests := []struct {
		name string
		plan *SubscriptionPlan
		want bool
	}{
		{"active with price", &SubscriptionPlan{Active: true, StripePriceId: &price}, true},
		{"inactive with price", &SubscriptionPlan{Active: false, StripePriceId: &price}, false},
		{"active without price", &SubscriptionPlan{Active: true}, false},
		{"active with empty price", &SubscriptionPlan{Active: true, StripePriceId: &empty}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.plan.Purchasable(); got != tt.want {
				t.Errorf("Purchasable() = %v, want %v", got, tt.want)
			}
		})
	}
}
