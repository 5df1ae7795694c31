package contract

import (
	"context"

	"heartlink-be/internal/entity"
	"heartlink-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *entity.SubscriptionPlan) error
	Update(ctx context.Context, plan *entity.SubscriptionPlan) error
	// Delete is the compensating action when processor sync fails right
	// after creation; plans referenced by subscriptions are soft-deactivated
	// instead.
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SubscriptionPlan, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SubscriptionPlan, error)
	CountSubscriptionsReferencing(ctx context.Context, planId uuid.UUID) (int64, error)
}
