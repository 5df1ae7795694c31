package contract

import (
	"context"
	"time"

	"heartlink-be/internal/entity"
	"heartlink-be/internal/repository/specification"

	"github.com/google/uuid"
)

// Activation carries every field the webhook transition writes. It is applied
// as one conditional UPDATE so the idempotency gate and the state change
// commit atomically.
type Activation struct {
	PlanId            uuid.UUID
	Start             time.Time
	End               time.Time
	CheckoutSessionId string
	PaymentIntentId   *string
	CustomerId        *string
}

type SubscriptionRepository interface {
	// GetOrCreateByUser returns the user's subscription row, creating the
	// inactive default on first touch. Safe under concurrent callers
	// (unique user_id, ON CONFLICT DO NOTHING + re-read).
	GetOrCreateByUser(ctx context.Context, userId uuid.UUID) (*entity.UserSubscription, error)

	Update(ctx context.Context, sub *entity.UserSubscription) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserSubscription, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserSubscription, error)

	// SaveCustomerId persists the processor customer reference, but only if
	// none is stored yet. Guards against duplicate customers on retry.
	SaveCustomerId(ctx context.Context, userId uuid.UUID, customerId string) error

	// SaveCheckoutSession persists the pending session reference before the
	// checkout URL is returned, so an early webhook can correlate.
	SaveCheckoutSession(ctx context.Context, userId uuid.UUID, sessionId string) error

	// Activate applies the activation in a single conditional write. The
	// WHERE clause skips rows that are already active for the same checkout
	// session, which makes duplicate (including concurrent) deliveries
	// no-ops. Returns whether a row was changed.
	Activate(ctx context.Context, userId uuid.UUID, act Activation) (bool, error)

	// MarkExpired persists the lazy-observed expiry transition for an active
	// subscription whose end has passed. Never called from read paths
	// implicitly.
	MarkExpired(ctx context.Context, userId uuid.UUID, now time.Time) error

	// Cancel flips an active subscription to canceled and closes its window.
	// Returns false when no active subscription exists.
	Cancel(ctx context.Context, userId uuid.UUID, at time.Time) (bool, error)
}
