package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"heartlink-be/internal/dto"
	"heartlink-be/internal/entity"
	"heartlink-be/internal/pkg/apperrors"
	"heartlink-be/internal/pkg/logger"
	"heartlink-be/internal/pkg/paymentgw"
	"heartlink-be/internal/repository/contract"
	"heartlink-be/internal/repository/specification"
	"heartlink-be/internal/repository/unitofwork"
	"heartlink-be/pkg/events"
	pkgNats "heartlink-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ReceiptTopic is the in-process pipeline carrying activation receipts to the
// mail consumer.
const ReceiptTopic = "subscription.receipts"

const webhookSeenTTL = 24 * time.Hour

type ISubscriptionService interface {
	// InitiatePurchase creates a hosted checkout session for the plan. The
	// session id is persisted on the user's subscription row before the URL
	// is returned, so a webhook arriving early can still correlate.
	InitiatePurchase(ctx context.Context, userId, planId uuid.UUID) (*dto.CheckoutResponse, error)

	// ActivateFromEvent applies a verified processor event. Every outcome
	// except a storage failure is terminal: irrelevant, unpaid, unresolvable
	// and duplicate events are logged and swallowed so the processor stops
	// redelivering.
	ActivateFromEvent(ctx context.Context, ev *paymentgw.WebhookEvent) error

	Cancel(ctx context.Context, userId uuid.UUID) error
	GetMySubscription(ctx context.Context, userId uuid.UUID) (*dto.SubscriptionResponse, error)
	ValidateSubscription(ctx context.Context, userId uuid.UUID) (*dto.SubscriptionValidationResponse, error)
}

type subscriptionService struct {
	uowFactory     unitofwork.RepositoryFactory
	gateway        paymentgw.Gateway
	log            logger.ILogger
	eventPublisher *pkgNats.Publisher
	pubSub         *gochannel.GoChannel
	redisClient    *redis.Client
}

func NewSubscriptionService(
	uowFactory unitofwork.RepositoryFactory,
	gateway paymentgw.Gateway,
	log logger.ILogger,
	eventPublisher *pkgNats.Publisher,
	pubSub *gochannel.GoChannel,
	redisClient *redis.Client,
) ISubscriptionService {
	return &subscriptionService{
		uowFactory:     uowFactory,
		gateway:        gateway,
		log:            log,
		eventPublisher: eventPublisher,
		pubSub:         pubSub,
		redisClient:    redisClient,
	}
}

func (s *subscriptionService) InitiatePurchase(ctx context.Context, userId, planId uuid.UUID) (*dto.CheckoutResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: planId})
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.Active {
		return nil, fmt.Errorf("%w: plan %s", apperrors.ErrNotFound, planId)
	}
	if !plan.Purchasable() {
		return nil, fmt.Errorf("%w: plan %s is not synced with the payment processor", apperrors.ErrConflict, planId)
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userId)
	}

	sub, err := uow.SubscriptionRepository().GetOrCreateByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if sub.IsUsable(time.Now()) {
		return nil, fmt.Errorf("%w: an active subscription already exists", apperrors.ErrConflict)
	}

	if sub.StripeCustomerId == nil || *sub.StripeCustomerId == "" {
		displayName := user.FullName
		if displayName == "" {
			displayName = user.Email
		}
		customerId, err := s.gateway.CreateCustomer(ctx, user.Email, displayName)
		if err != nil {
			return nil, fmt.Errorf("%w: create customer: %v", apperrors.ErrProcessor, err)
		}
		if err := uow.SubscriptionRepository().SaveCustomerId(ctx, userId, customerId); err != nil {
			return nil, err
		}
		sub.StripeCustomerId = &customerId
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, *sub.StripeCustomerId, *plan.StripePriceId, userId, plan.Id)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", apperrors.ErrProcessor, err)
	}

	// Persist before returning the URL. If this write fails the session is
	// orphaned at the processor, which is harmless; the user retries and
	// gets a new one.
	if err := uow.SubscriptionRepository().SaveCheckoutSession(ctx, userId, sess.Id); err != nil {
		s.log.Warn("subscription_service", "checkout session created but not persisted", map[string]interface{}{
			"user_id":    userId,
			"session_id": sess.Id,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.log.Info("subscription_service", "checkout session created", map[string]interface{}{
		"user_id":    userId,
		"plan_id":    plan.Id,
		"session_id": sess.Id,
	})

	return &dto.CheckoutResponse{CheckoutUrl: sess.Url, SessionId: sess.Id}, nil
}

func (s *subscriptionService) ActivateFromEvent(ctx context.Context, ev *paymentgw.WebhookEvent) error {
	if ev == nil || ev.Session == nil {
		s.log.Debug("subscription_service", "ignoring irrelevant webhook event", map[string]interface{}{
			"event_type": eventType(ev),
		})
		return nil
	}

	sess := ev.Session
	if sess.PaymentStatus != "paid" {
		s.log.Info("subscription_service", "checkout completed without payment, ignoring", map[string]interface{}{
			"session_id":     sess.SessionId,
			"payment_status": sess.PaymentStatus,
		})
		return nil
	}

	if sess.ClientReferenceId == "" || sess.PlanId == "" {
		s.log.Warn("subscription_service", "webhook session missing correlation identifiers", map[string]interface{}{
			"session_id": sess.SessionId,
		})
		return nil
	}

	userId, err := uuid.Parse(sess.ClientReferenceId)
	if err != nil {
		s.log.Warn("subscription_service", "webhook carries malformed user reference", map[string]interface{}{
			"session_id":          sess.SessionId,
			"client_reference_id": sess.ClientReferenceId,
		})
		return nil
	}
	planId, err := uuid.Parse(sess.PlanId)
	if err != nil {
		s.log.Warn("subscription_service", "webhook carries malformed plan reference", map[string]interface{}{
			"session_id": sess.SessionId,
			"plan_id":    sess.PlanId,
		})
		return nil
	}

	// Advisory fast path only. The authoritative duplicate gate is the
	// conditional UPDATE in the repository.
	if s.alreadySeen(ctx, sess.SessionId) {
		s.log.Info("subscription_service", "duplicate webhook delivery, already processed", map[string]interface{}{
			"session_id": sess.SessionId,
		})
		return nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return err
	}
	if user == nil {
		s.log.Warn("subscription_service", "webhook references unknown user, acknowledging", map[string]interface{}{
			"session_id": sess.SessionId,
			"user_id":    userId,
		})
		return nil
	}

	plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: planId})
	if err != nil {
		return err
	}
	if plan == nil {
		s.log.Warn("subscription_service", "webhook references unknown plan, acknowledging", map[string]interface{}{
			"session_id": sess.SessionId,
			"plan_id":    planId,
		})
		return nil
	}

	if _, err := uow.SubscriptionRepository().GetOrCreateByUser(ctx, userId); err != nil {
		return err
	}

	start := time.Now()
	end := start.AddDate(0, plan.DurationMonths, 0)

	applied, err := uow.SubscriptionRepository().Activate(ctx, userId, contract.Activation{
		PlanId:            planId,
		Start:             start,
		End:               end,
		CheckoutSessionId: sess.SessionId,
		PaymentIntentId:   sess.PaymentIntentId,
		CustomerId:        sess.CustomerId,
	})
	if err != nil {
		return err
	}
	s.markSeen(ctx, sess.SessionId)

	if !applied {
		s.log.Info("subscription_service", "activation already applied for this session", map[string]interface{}{
			"session_id": sess.SessionId,
			"user_id":    userId,
		})
		return nil
	}

	s.log.Info("subscription_service", "subscription activated", map[string]interface{}{
		"user_id":    userId,
		"plan_id":    planId,
		"session_id": sess.SessionId,
		"period_end": end,
	})

	s.publishActivatedEvent(ctx, userId, plan, sess.SessionId, end)
	s.publishReceipt(userId, user.Email, user.FullName, plan, end)
	return nil
}

func (s *subscriptionService) Cancel(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	canceled, err := uow.SubscriptionRepository().Cancel(ctx, userId, time.Now())
	if err != nil {
		return err
	}
	if !canceled {
		return fmt.Errorf("%w: no active subscription to cancel", apperrors.ErrBadRequest)
	}

	s.log.Info("subscription_service", "subscription canceled", map[string]interface{}{
		"user_id": userId,
	})

	if s.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "SUBSCRIPTION_CANCELED",
			Data: map[string]interface{}{
				"user_id":     userId,
				"occurred_at": time.Now(),
			},
			OccurredAt: time.Now(),
		}
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.log.Warn("subscription_service", "failed to publish cancel event", map[string]interface{}{
				"user_id": userId,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

func (s *subscriptionService) GetMySubscription(ctx context.Context, userId uuid.UUID) (*dto.SubscriptionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sub, err := uow.SubscriptionRepository().GetOrCreateByUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if sub.Status == entity.SubscriptionStatusActive && sub.SubscriptionEnd != nil && now.After(*sub.SubscriptionEnd) {
		// Lazy expiry observed on read; persist the transition explicitly.
		if err := uow.SubscriptionRepository().MarkExpired(ctx, userId, now); err != nil {
			s.log.Warn("subscription_service", "failed to persist expiry transition", map[string]interface{}{
				"user_id": userId,
				"error":   err.Error(),
			})
		} else {
			sub.Status = entity.SubscriptionStatusInactive
		}
	}

	res := &dto.SubscriptionResponse{
		Id:                sub.Id,
		Status:            string(sub.Status),
		SubscriptionStart: sub.SubscriptionStart,
		SubscriptionEnd:   sub.SubscriptionEnd,
		IsUsable:          sub.IsUsable(now),
		CreatedAt:         sub.CreatedAt,
		UpdatedAt:         sub.UpdatedAt,
	}

	if sub.PlanId != nil {
		plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: *sub.PlanId})
		if err != nil {
			return nil, err
		}
		if plan != nil {
			res.Plan = planToResponse(plan)
		}
	}
	return res, nil
}

func (s *subscriptionService) ValidateSubscription(ctx context.Context, userId uuid.UUID) (*dto.SubscriptionValidationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sub, err := uow.SubscriptionRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &dto.SubscriptionValidationResponse{
			IsValid:         false,
			Status:          "inactive",
			RenewalRequired: true,
		}, nil
	}

	planName := ""
	if sub.PlanId != nil {
		if plan, err := uow.PlanRepository().FindOne(ctx, specification.ByID{ID: *sub.PlanId}); err == nil && plan != nil {
			planName = plan.Name
		}
	}

	now := time.Now()
	if sub.IsUsable(now) {
		daysRemaining := 0
		if sub.SubscriptionEnd != nil {
			daysRemaining = int(sub.SubscriptionEnd.Sub(now).Hours() / 24)
			if daysRemaining < 0 {
				daysRemaining = 0
			}
		}
		return &dto.SubscriptionValidationResponse{
			IsValid:          true,
			Status:           "active",
			RenewalRequired:  false,
			CurrentPeriodEnd: sub.SubscriptionEnd,
			DaysRemaining:    daysRemaining,
			PlanName:         planName,
		}, nil
	}

	status := string(sub.Status)
	if sub.Status == entity.SubscriptionStatusActive {
		// Active flag with a past end: the window ran out and nobody has
		// observed it yet. Persist the transition now.
		status = "expired"
		if err := uow.SubscriptionRepository().MarkExpired(ctx, userId, now); err != nil {
			s.log.Warn("subscription_service", "failed to persist expiry transition", map[string]interface{}{
				"user_id": userId,
				"error":   err.Error(),
			})
		}
	}

	return &dto.SubscriptionValidationResponse{
		IsValid:          false,
		Status:           status,
		RenewalRequired:  true,
		CurrentPeriodEnd: sub.SubscriptionEnd,
		PlanName:         planName,
	}, nil
}

func (s *subscriptionService) alreadySeen(ctx context.Context, sessionId string) bool {
	if s.redisClient == nil {
		return false
	}
	val, err := s.redisClient.Get(ctx, webhookSeenKey(sessionId)).Result()
	return err == nil && val != ""
}

func (s *subscriptionService) markSeen(ctx context.Context, sessionId string) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Set(ctx, webhookSeenKey(sessionId), "1", webhookSeenTTL).Err(); err != nil {
		s.log.Debug("subscription_service", "failed to mark webhook as seen", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
}

func webhookSeenKey(sessionId string) string {
	return "webhook:checkout:" + sessionId
}

func (s *subscriptionService) publishActivatedEvent(ctx context.Context, userId uuid.UUID, plan *entity.SubscriptionPlan, sessionId string, periodEnd time.Time) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type: "SUBSCRIPTION_ACTIVATED",
		Data: map[string]interface{}{
			"user_id":    userId,
			"plan_id":    plan.Id,
			"plan_type":  plan.PlanType,
			"amount":     plan.Amount,
			"currency":   plan.Currency,
			"session_id": sessionId,
			"period_end": periodEnd,
		},
		OccurredAt: time.Now(),
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.log.Warn("subscription_service", "failed to publish activation event", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}
}

func (s *subscriptionService) publishReceipt(userId uuid.UUID, email, fullName string, plan *entity.SubscriptionPlan, periodEnd time.Time) {
	if s.pubSub == nil {
		return
	}
	payload, err := json.Marshal(dto.SubscriptionActivatedMessage{
		UserId:    userId,
		Email:     email,
		FullName:  fullName,
		PlanName:  plan.Name,
		Amount:    plan.Amount,
		Currency:  plan.Currency,
		PeriodEnd: periodEnd,
	})
	if err != nil {
		s.log.Warn("subscription_service", "failed to marshal receipt message", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(ReceiptTopic, msg); err != nil {
		s.log.Warn("subscription_service", "failed to publish receipt message", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}
}

func eventType(ev *paymentgw.WebhookEvent) string {
	if ev == nil {
		return ""
	}
	return ev.Type
}
