package paymentgw

import (
	"context"

	"heartlink-be/internal/entity"

	"github.com/google/uuid"
)

// CheckoutSession is the subset of the hosted payment flow the engine needs.
type CheckoutSession struct {
	Id  string
	Url string
}

// ProductUpdate carries the mutable product attributes. Price changes are not
// updates: processor prices are immutable, so a changed amount retires the
// old price and creates a new one.
type ProductUpdate struct {
	Name        *string
	Description *string
	Active      *bool
}

// CheckoutCompleted is the decoded payload of a completed checkout event.
// Correlation identifiers are carried in the session itself so the handler
// can resolve user and plan without a lookup keyed on session id alone.
type CheckoutCompleted struct {
	SessionId         string
	PaymentStatus     string
	ClientReferenceId string
	PlanId            string
	CustomerId        *string
	PaymentIntentId   *string
}

// WebhookEvent is the tagged variant produced at the ingestion boundary.
// Session is non-nil only when Type is the checkout-completed event; every
// other event type is acknowledged without a payload.
type WebhookEvent struct {
	Type    string
	Session *CheckoutCompleted
}

// Gateway is the thin adapter over the external payment processor. Every
// call is a blocking network operation with a bounded timeout; failures are
// returned, never retried internally.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, displayName string) (string, error)
	CreateProductAndPrice(ctx context.Context, plan *entity.SubscriptionPlan) (productId, priceId string, err error)
	CreatePrice(ctx context.Context, productId string, amountMinorUnits int64, currency string) (string, error)
	RetirePrice(ctx context.Context, priceId string) error
	UpdateProductMetadata(ctx context.Context, productId string, upd ProductUpdate) error
	CreateCheckoutSession(ctx context.Context, customerId, priceId string, userId, planId uuid.UUID) (*CheckoutSession, error)
	VerifyAndParseEvent(payload []byte, signatureHeader string) (*WebhookEvent, error)
}
