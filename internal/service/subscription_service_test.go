package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"heartlink-be/internal/dto"
	"heartlink-be/internal/entity"
	"heartlink-be/internal/pkg/apperrors"
	"heartlink-be/internal/pkg/paymentgw"
	"heartlink-be/internal/repository/contract"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testPlan(months int) *entity.SubscriptionPlan {
	return &entity.SubscriptionPlan{
		Id:              uuid.New(),
		PlanType:        entity.PlanTypePremium,
		Name:            "Premium",
		Amount:          24.99,
		Currency:        "usd",
		DurationMonths:  months,
		Active:          true,
		StripeProductId: strPtr("prod_123"),
		StripePriceId:   strPtr("price_123"),
	}
}

func testUser() *entity.User {
	return &entity.User{
		Id:       uuid.New(),
		Email:    "amelie@example.com",
		FullName: "Amelie Laurent",
		Role:     "user",
		Status:   "active",
	}
}

func newSubscriptionService(factory *stubFactory, gateway *mockGateway) ISubscriptionService {
	return NewSubscriptionService(factory, gateway, noopLogger{}, nil, nil, nil)
}

func TestInitiatePurchase_PlanNotFound(t *testing.T) {
	factory, _, plans, _, gateway := newTestFixture()
	plans.On("FindOne", mock.Anything, mock.Anything).Return(nil, nil)

	svc := newSubscriptionService(factory, gateway)
	_, err := svc.InitiatePurchase(context.Background(), uuid.New(), uuid.New())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiatePurchase_InactivePlanNotFound(t *testing.T) {
	factory, _, plans, _, gateway := newTestFixture()
	plan := testPlan(3)
	plan.Active = false
	plans.On("FindOne", mock.Anything, mock.Anything).Return(plan, nil)

	svc := newSubscriptionService(factory, gateway)
	_, err := svc.InitiatePurchase(context.Background(), uuid.New(), plan.Id)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInitiatePurchase_ActiveSubscriptionConflict(t *testing.T) {
	factory, users, plans, subs, gateway := newTestFixture()
	user := testUser()
	plan := testPlan(3)
	end := time.Now().Add(30 * 24 * time.Hour)

	plans.On("FindOne", mock.Anything, mock.Anything).Return(plan, nil)
	users.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)
	subs.On("GetOrCreateByUser", mock.Anything, user.Id).Return(&entity.UserSubscription{
		Id:              uuid.New(),
		UserId:          user.Id,
		Status:          entity.SubscriptionStatusActive,
		SubscriptionEnd: &end,
	}, nil)

	svc := newSubscriptionService(factory, gateway)
	_, err := svc.InitiatePurchase(context.Background(), user.Id, plan.Id)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiatePurchase_ExpiredActiveRowAllowsRepurchase(t *testing.T) {
	factory, users, plans, subs, gateway := newTestFixture()
	user := testUser()
	plan := testPlan(3)
	pastEnd := time.Now().Add(-24 * time.Hour)

	plans.On("FindOne", mock.Anything, mock.Anything).Return(plan, nil)
	users.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)
	// Status still reads active but the window has passed: lazily expired.
	subs.On("GetOrCreateByUser", mock.Anything, user.Id).Return(&entity.UserSubscription{
		Id:               uuid.New(),
		UserId:           user.Id,
		Status:           entity.SubscriptionStatusActive,
		SubscriptionEnd:  &pastEnd,
		StripeCustomerId: strPtr("cus_abc"),
	}, nil)
	gateway.On("CreateCheckoutSession", mock.Anything, "cus_abc", "price_123", user.Id, plan.Id).
		Return(&paymentgw.CheckoutSession{Id: "cs_new", Url: "https://pay.example/cs_new"}, nil)
	subs.On("SaveCheckoutSession", mock.Anything, user.Id, "cs_new").Return(nil)

	svc := newSubscriptionService(factory, gateway)
	res, err := svc.InitiatePurchase(context.Background(), user.Id, plan.Id)

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_new", res.CheckoutUrl)
}

func TestInitiatePurchase_CreatesCustomerOnce(t *testing.T) {
	factory, users, plans, subs, gateway := newTestFixture()
	user := testUser()
	plan := testPlan(3)

	plans.On("FindOne", mock.Anything, mock.Anything).Return(plan, nil)
	users.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)
	subs.On("GetOrCreateByUser", mock.Anything, user.Id).Return(&entity.UserSubscription{
		Id:     uuid.New(),
		UserId: user.Id,
		Status: entity.SubscriptionStatusInactive,
	}, nil)
	gateway.On("CreateCustomer", mock.Anything, user.Email, user.FullName).Return("cus_new", nil)
	subs.On("SaveCustomerId", mock.Anything, user.Id, "cus_new").Return(nil)
	gateway.On("CreateCheckoutSession", mock.Anything, "cus_new", "price_123", user.Id, plan.Id).
		Return(&paymentgw.CheckoutSession{Id: "cs_1", Url: "https://pay.example/cs_1"}, nil)
	subs.On("SaveCheckoutSession", mock.Anything, user.Id, "cs_1").Return(nil)

	svc := newSubscriptionService(factory, gateway)
	res, err := svc.InitiatePurchase(context.Background(), user.Id, plan.Id)

	require.NoError(t, err)
	assert.Equal(t, "cs_1", res.SessionId)
	gateway.AssertCalled(t, "CreateCustomer", mock.Anything, user.Email, user.FullName)
	subs.AssertCalled(t, "SaveCheckoutSession", mock.Anything, user.Id, "cs_1")
}

func TestInitiatePurchase_ReusesStoredCustomer(t *testing.T) {
	factory, users, plans, subs, gateway := newTestFixture()
	user := testUser()
	plan := testPlan(3)

	plans.On("FindOne", mock.Anything, mock.Anything).Return(plan, nil)
	users.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)
	subs.On("GetOrCreateByUser", mock.Anything, user.Id).Return(&entity.UserSubscription{
		Id:               uuid.New(),
		UserId:           user.Id,
		Status:           entity.SubscriptionStatusInactive,
		StripeCustomerId: strPtr("cus_existing"),
	}, nil)
	gateway.On("CreateCheckoutSession", mock.Anything, "cus_existing", "price_123", user.Id, plan.Id).
		Return(&paymentgw.CheckoutSession{Id: "cs_2", Url: "https://pay.example/cs_2"}, nil)
	subs.On("SaveCheckoutSession", mock.Anything, user.Id, "cs_2").Return(nil)

	svc := newSubscriptionService(factory, gateway)
	_, err := svc.InitiatePurchase(context.Background(), user.Id, plan.Id)

	require.NoError(t, err)
	gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiatePurchase_ProcessorFailure(t *testing.T) {
	factory, users, plans, subs, gateway := newTestFixture()
	user := testUser()
	plan := testPlan(3)

	plans.On("FindOne", mock.Anything, mock.Anything).Return(plan, nil)
	users.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)
	subs.On("GetOrCreateByUser", mock.Anything, user.Id).Return(&entity.UserSubscription{
		Id:               uuid.New(),
		UserId:           user.Id,
		Status:           entity.SubscriptionStatusInactive,
		StripeCustomerId: strPtr("cus_abc"),
	}, nil)
	gateway.On("CreateCheckoutSession", mock.Anything, "cus_abc", "price_123", user.Id, plan.Id).
		Return(nil, assert.AnError)

	svc := newSubscriptionService(factory, gateway)
	_, err := svc.InitiatePurchase(context.Background(), user.Id, plan.Id)

	assert.ErrorIs(t, err, apperrors.ErrProcessor)
	subs.AssertNotCalled(t, "SaveCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
}

func checkoutEvent(userId, planId uuid.UUID, sessionId, paymentStatus string) *paymentgw.WebhookEvent {
	return &paymentgw.WebhookEvent{
		Type: "checkout.session.completed",
		Session: &paymentgw.CheckoutCompleted{
			SessionId:         sessionId,
			PaymentStatus:     paymentStatus,
			ClientReferenceId: userId.String(),
			PlanId:            planId.String(),
			CustomerId:        strPtr("cus_abc"),
			PaymentIntentId:   strPtr("pi_abc"),
		},
	}
}

func TestActivateFromEvent_FreshPurchase(t *testing.T) {
	factory, users, plans, subs, gateway := newTestFixture()
	user := testUser()
	plan := testPlan(3)

	users.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)
	plans.On("FindOne", mock.Anything, mock.Anything).Return(plan, nil)
	subs.On("GetOrCreateByUser", mock.Anything, user.Id).Return(&entity.UserSubscription{
		Id:     uuid.New(),
		UserId: user.Id,
		Status: entity.SubscriptionStatusInactive,
	}, nil)

	var captured contract.Activation
	subs.On("Activate", mock.Anything, user.Id, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(contract.Activation)
		}).
		Return(true, nil)

	svc := newSubscriptionService(factory, gateway)
	err := svc.ActivateFromEvent(context.Background(), checkoutEvent(user.Id, plan.Id, "cs_fresh", "paid"))

	require.NoError(t, err)
	assert.Equal(t, plan.Id, captured.PlanId)
	assert.Equal(t, "cs_fresh", captured.CheckoutSessionId)
	require.NotNil(t, captured.PaymentIntentId)
	assert.Equal(t, "pi_abc", *captured.PaymentIntentId)
	// Calendar arithmetic: three months from the activation instant.
	assert.WithinDuration(t, captured.Start.AddDate(0, 3, 0), captured.End, time.Second)
}

func TestActivateFromEvent_UnpaidSessionIgnored(t *testing.T) {
	factory, _, _, subs, gateway := newTestFixture()

	svc := newSubscriptionService(factory, gateway)
	err := svc.ActivateFromEvent(context.Background(), checkoutEvent(uuid.New(), uuid.New(), "cs_unpaid", "unpaid"))

	require.NoError(t, err)
	subs.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateFromEvent_IrrelevantEventType(t *testing.T) {
	factory, _, _, subs, gateway := newTestFixture()

	svc := newSubscriptionService(factory, gateway)
	err := svc.ActivateFromEvent(context.Background(), &paymentgw.WebhookEvent{Type: "invoice.created"})

	require.NoError(t, err)
	subs.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateFromEvent_MissingCorrelation(t *testing.T) {
	factory, _, _, subs, gateway := newTestFixture()

	ev := &paymentgw.WebhookEvent{
		Type: "checkout.session.completed",
		Session: &paymentgw.CheckoutCompleted{
			SessionId:     "cs_orphan",
			PaymentStatus: "paid",
		},
	}

	svc := newSubscriptionService(factory, gateway)
	err := svc.ActivateFromEvent(context.Background(), ev)

	require.NoError(t, err)
	subs.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateFromEvent_UnknownUserAcknowledged(t *testing.T) {
	factory, users, _, subs, gateway := newTestFixture()
	users.On("FindOne", mock.Anything, mock.Anything).Return(nil, nil)

	svc := newSubscriptionService(factory, gateway)
	err := svc.ActivateFromEvent(context.Background(), checkoutEvent(uuid.New(), uuid.New(), "cs_ghost", "paid"))

	require.NoError(t, err)
	subs.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateFromEvent_UnknownPlanAcknowledged(t *testing.T) {
	factory, users, plans, subs, gateway := newTestFixture()
	users.On("FindOne", mock.Anything, mock.Anything).Return(testUser(), nil)
	plans.On("FindOne", mock.Anything, mock.Anything).Return(nil, nil)

	svc := newSubscriptionService(factory, gateway)
	err := svc.ActivateFromEvent(context.Background(), checkoutEvent(uuid.New(), uuid.New(), "cs_noplan", "paid"))

	require.NoError(t, err)
	subs.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateFromEvent_DuplicateDeliveryIsNoop(t *testing.T) {
	factory, users, plans, subs, gateway := newTestFixture()
	user := testUser()
	plan := testPlan(3)

	users.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)
	plans.On("FindOne", mock.Anything, mock.Anything).Return(plan, nil)
	subs.On("GetOrCreateByUser", mock.Anything, user.Id).Return(&entity.UserSubscription{
		Id:                      uuid.New(),
		UserId:                  user.Id,
		Status:                  entity.SubscriptionStatusActive,
		StripeCheckoutSessionId: strPtr("cs_dup"),
	}, nil)
	// The conditional write reports nothing changed.
	subs.On("Activate", mock.Anything, user.Id, mock.Anything).Return(false, nil)

	svc := newSubscriptionService(factory, gateway)
	err := svc.ActivateFromEvent(context.Background(), checkoutEvent(user.Id, plan.Id, "cs_dup", "paid"))

	require.NoError(t, err)
}

func TestActivateFromEvent_PublishesReceipt(t *testing.T) {
	factory, users, plans, subs, gateway := newTestFixture()
	user := testUser()
	plan := testPlan(3)

	users.On("FindOne", mock.Anything, mock.Anything).Return(user, nil)
	plans.On("FindOne", mock.Anything, mock.Anything).Return(plan, nil)
	subs.On("GetOrCreateByUser", mock.Anything, user.Id).Return(&entity.UserSubscription{
		Id:     uuid.New(),
		UserId: user.Id,
		Status: entity.SubscriptionStatusInactive,
	}, nil)
	subs.On("Activate", mock.Anything, user.Id, mock.Anything).Return(true, nil)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	messages, err := pubSub.Subscribe(context.Background(), ReceiptTopic)
	require.NoError(t, err)

	svc := NewSubscriptionService(factory, gateway, noopLogger{}, nil, pubSub, nil)
	err = svc.ActivateFromEvent(context.Background(), checkoutEvent(user.Id, plan.Id, "cs_receipt", "paid"))
	require.NoError(t, err)

	select {
	case msg := <-messages:
		var payload dto.SubscriptionActivatedMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, user.Id, payload.UserId)
		assert.Equal(t, user.Email, payload.Email)
		assert.Equal(t, plan.Name, payload.PlanName)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("expected a receipt message on the pipeline")
	}
}

func TestCancel_NoActiveSubscription(t *testing.T) {
	factory, _, _, subs, gateway := newTestFixture()
	userId := uuid.New()
	subs.On("Cancel", mock.Anything, userId, mock.Anything).Return(false, nil)

	svc := newSubscriptionService(factory, gateway)
	err := svc.Cancel(context.Background(), userId)

	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestCancel_Success(t *testing.T) {
	factory, _, _, subs, gateway := newTestFixture()
	userId := uuid.New()
	subs.On("Cancel", mock.Anything, userId, mock.Anything).Return(true, nil)

	svc := newSubscriptionService(factory, gateway)
	err := svc.Cancel(context.Background(), userId)

	require.NoError(t, err)
}

func TestGetMySubscription_LazyExpiry(t *testing.T) {
	factory, _, plans, subs, gateway := newTestFixture()
	userId := uuid.New()
	planId := uuid.New()
	pastEnd := time.Now().Add(-time.Hour)
	start := pastEnd.AddDate(0, -3, 0)

	subs.On("GetOrCreateByUser", mock.Anything, userId).Return(&entity.UserSubscription{
		Id:                uuid.New(),
		UserId:            userId,
		PlanId:            &planId,
		Status:            entity.SubscriptionStatusActive,
		SubscriptionStart: &start,
		SubscriptionEnd:   &pastEnd,
	}, nil)
	subs.On("MarkExpired", mock.Anything, userId, mock.Anything).Return(nil)
	plans.On("FindOne", mock.Anything, mock.Anything).Return(testPlan(3), nil)

	svc := newSubscriptionService(factory, gateway)
	res, err := svc.GetMySubscription(context.Background(), userId)

	require.NoError(t, err)
	assert.Equal(t, "inactive", res.Status)
	assert.False(t, res.IsUsable)
	subs.AssertCalled(t, "MarkExpired", mock.Anything, userId, mock.Anything)
}

func TestGetMySubscription_ActiveUsable(t *testing.T) {
	factory, _, plans, subs, gateway := newTestFixture()
	userId := uuid.New()
	planId := uuid.New()
	end := time.Now().Add(30 * 24 * time.Hour)

	subs.On("GetOrCreateByUser", mock.Anything, userId).Return(&entity.UserSubscription{
		Id:              uuid.New(),
		UserId:          userId,
		PlanId:          &planId,
		Status:          entity.SubscriptionStatusActive,
		SubscriptionEnd: &end,
	}, nil)
	plans.On("FindOne", mock.Anything, mock.Anything).Return(testPlan(3), nil)

	svc := newSubscriptionService(factory, gateway)
	res, err := svc.GetMySubscription(context.Background(), userId)

	require.NoError(t, err)
	assert.Equal(t, "active", res.Status)
	assert.True(t, res.IsUsable)
	require.NotNil(t, res.Plan)
	assert.Equal(t, "Premium", res.Plan.Name)
	subs.AssertNotCalled(t, "MarkExpired", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateSubscription_NoRow(t *testing.T) {
	factory, _, _, subs, gateway := newTestFixture()
	subs.On("FindOne", mock.Anything, mock.Anything).Return(nil, nil)

	svc := newSubscriptionService(factory, gateway)
	res, err := svc.ValidateSubscription(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, "inactive", res.Status)
	assert.True(t, res.RenewalRequired)
}

func TestValidateSubscription_ActiveValid(t *testing.T) {
	factory, _, plans, subs, gateway := newTestFixture()
	userId := uuid.New()
	planId := uuid.New()
	end := time.Now().Add(10 * 24 * time.Hour)

	subs.On("FindOne", mock.Anything, mock.Anything).Return(&entity.UserSubscription{
		Id:              uuid.New(),
		UserId:          userId,
		PlanId:          &planId,
		Status:          entity.SubscriptionStatusActive,
		SubscriptionEnd: &end,
	}, nil)
	plans.On("FindOne", mock.Anything, mock.Anything).Return(testPlan(3), nil)

	svc := newSubscriptionService(factory, gateway)
	res, err := svc.ValidateSubscription(context.Background(), userId)

	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, "active", res.Status)
	assert.Equal(t, 9, res.DaysRemaining)
	assert.Equal(t, "Premium", res.PlanName)
}

func TestValidateSubscription_ExpiredPersistsTransition(t *testing.T) {
	factory, _, plans, subs, gateway := newTestFixture()
	userId := uuid.New()
	planId := uuid.New()
	pastEnd := time.Now().Add(-time.Hour)

	subs.On("FindOne", mock.Anything, mock.Anything).Return(&entity.UserSubscription{
		Id:              uuid.New(),
		UserId:          userId,
		PlanId:          &planId,
		Status:          entity.SubscriptionStatusActive,
		SubscriptionEnd: &pastEnd,
	}, nil)
	plans.On("FindOne", mock.Anything, mock.Anything).Return(testPlan(3), nil)
	subs.On("MarkExpired", mock.Anything, userId, mock.Anything).Return(nil)

	svc := newSubscriptionService(factory, gateway)
	res, err := svc.ValidateSubscription(context.Background(), userId)

	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, "expired", res.Status)
	assert.True(t, res.RenewalRequired)
	subs.AssertCalled(t, "MarkExpired", mock.Anything, userId, mock.Anything)
}

func TestValidateSubscription_Canceled(t *testing.T) {
	factory, _, plans, subs, gateway := newTestFixture()
	userId := uuid.New()
	planId := uuid.New()
	pastEnd := time.Now().Add(-time.Hour)

	subs.On("FindOne", mock.Anything, mock.Anything).Return(&entity.UserSubscription{
		Id:              uuid.New(),
		UserId:          userId,
		PlanId:          &planId,
		Status:          entity.SubscriptionStatusCanceled,
		SubscriptionEnd: &pastEnd,
	}, nil)
	plans.On("FindOne", mock.Anything, mock.Anything).Return(testPlan(3), nil)

	svc := newSubscriptionService(factory, gateway)
	res, err := svc.ValidateSubscription(context.Background(), userId)

	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, "canceled", res.Status)
	subs.AssertNotCalled(t, "MarkExpired", mock.Anything, mock.Anything, mock.Anything)
}
