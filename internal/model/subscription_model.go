package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SubscriptionPlan struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PlanType       string            `gorm:"type:varchar(20);uniqueIndex;not null"`
	Name           string            `gorm:"type:varchar(100);not null"`
	Description    string            `gorm:"type:text"`
	Amount         float64           `gorm:"type:decimal(10,2);not null"`
	Currency       string            `gorm:"type:varchar(10);not null;default:'usd'"`
	DurationMonths int               `gorm:"not null"`
	Details        datatypes.JSONMap `gorm:"type:jsonb"`
	Active         bool              `gorm:"default:true;index"`

	StripeProductId *string `gorm:"type:varchar(255)"`
	StripePriceId   *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

type UserSubscription struct {
	Id     uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	PlanId *uuid.UUID `gorm:"type:uuid;index"`
	Status string     `gorm:"type:varchar(20);not null;default:'inactive'"`

	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time

	StripeCustomerId        *string `gorm:"type:varchar(255)"`
	StripeCheckoutSessionId *string `gorm:"type:varchar(255);uniqueIndex"`
	StripePaymentIntentId   *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserSubscription) TableName() string {
	return "user_subscriptions"
}
