package implementation

import (
	"context"
	"errors"
	"time"

	"heartlink-be/internal/entity"
	"heartlink-be/internal/mapper"
	"heartlink-be/internal/model"
	"heartlink-be/internal/repository/contract"
	"heartlink-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SubscriptionMapper
}

func NewSubscriptionRepository(db *gorm.DB) contract.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSubscriptionMapper(),
	}
}

func (r *SubscriptionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SubscriptionRepositoryImpl) GetOrCreateByUser(ctx context.Context, userId uuid.UUID) (*entity.UserSubscription, error) {
	m := model.UserSubscription{
		Id:     uuid.New(),
		UserId: userId,
		Status: string(entity.SubscriptionStatusInactive),
	}
	// Unique index on user_id makes this race-safe: the loser of a
	// concurrent insert falls through to the re-read below.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&m).Error
	if err != nil {
		return nil, err
	}

	var found model.UserSubscription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&found).Error; err != nil {
		return nil, err
	}
	return r.mapper.SubscriptionToEntity(&found), nil
}

func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, sub *entity.UserSubscription) error {
	m := r.mapper.SubscriptionToModel(sub)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*sub = *r.mapper.SubscriptionToEntity(m)
	return nil
}

func (r *SubscriptionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserSubscription, error) {
	var m model.UserSubscription
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SubscriptionToEntity(&m), nil
}

func (r *SubscriptionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserSubscription, error) {
	var models []*model.UserSubscription
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.UserSubscription, len(models))
	for i, m := range models {
		entities[i] = r.mapper.SubscriptionToEntity(m)
	}
	return entities, nil
}

func (r *SubscriptionRepositoryImpl) SaveCustomerId(ctx context.Context, userId uuid.UUID, customerId string) error {
	return r.db.WithContext(ctx).Model(&model.UserSubscription{}).
		Where("user_id = ? AND stripe_customer_id IS NULL", userId).
		Update("stripe_customer_id", customerId).Error
}

func (r *SubscriptionRepositoryImpl) SaveCheckoutSession(ctx context.Context, userId uuid.UUID, sessionId string) error {
	return r.db.WithContext(ctx).Model(&model.UserSubscription{}).
		Where("user_id = ?", userId).
		Update("stripe_checkout_session_id", sessionId).Error
}

func (r *SubscriptionRepositoryImpl) Activate(ctx context.Context, userId uuid.UUID, act contract.Activation) (bool, error) {
	updates := map[string]interface{}{
		"status":                     string(entity.SubscriptionStatusActive),
		"plan_id":                    act.PlanId,
		"subscription_start":         act.Start,
		"subscription_end":           act.End,
		"stripe_checkout_session_id": act.CheckoutSessionId,
	}
	if act.PaymentIntentId != nil {
		updates["stripe_payment_intent_id"] = *act.PaymentIntentId
	}
	if act.CustomerId != nil {
		updates["stripe_customer_id"] = *act.CustomerId
	}

	// The idempotency gate lives in the WHERE clause: a row that is already
	// active for this exact session is left untouched, so two concurrent
	// duplicate deliveries cannot both apply.
	res := r.db.WithContext(ctx).Model(&model.UserSubscription{}).
		Where("user_id = ?", userId).
		Where("(status <> ? OR COALESCE(stripe_checkout_session_id, '') <> ?)",
			string(entity.SubscriptionStatusActive), act.CheckoutSessionId).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *SubscriptionRepositoryImpl) MarkExpired(ctx context.Context, userId uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.UserSubscription{}).
		Where("user_id = ? AND status = ? AND subscription_end IS NOT NULL AND subscription_end < ?",
			userId, string(entity.SubscriptionStatusActive), now).
		Update("status", string(entity.SubscriptionStatusInactive)).Error
}

func (r *SubscriptionRepositoryImpl) Cancel(ctx context.Context, userId uuid.UUID, at time.Time) (bool, error) {
	// An active row whose end already passed is not cancellable; it is
	// expired and only lazily observed as inactive.
	res := r.db.WithContext(ctx).Model(&model.UserSubscription{}).
		Where("user_id = ? AND status = ? AND (subscription_end IS NULL OR subscription_end > ?)",
			userId, string(entity.SubscriptionStatusActive), at).
		Updates(map[string]interface{}{
			"status":           string(entity.SubscriptionStatusCanceled),
			"subscription_end": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
