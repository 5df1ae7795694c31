package service

import (
	"context"
	"time"

	"heartlink-be/internal/entity"
	"heartlink-be/internal/pkg/paymentgw"
	"heartlink-be/internal/repository/contract"
	"heartlink-be/internal/repository/specification"
	"heartlink-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	args := m.Called(ctx, specs)
	if u := args.Get(0); u != nil {
		return u.(*entity.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	args := m.Called(ctx, specs)
	return args.Get(0).(int64), args.Error(1)
}

type mockPlanRepo struct{ mock.Mock }

func (m *mockPlanRepo) Create(ctx context.Context, plan *entity.SubscriptionPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *mockPlanRepo) Update(ctx context.Context, plan *entity.SubscriptionPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *mockPlanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPlanRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SubscriptionPlan, error) {
	args := m.Called(ctx, specs)
	if p := args.Get(0); p != nil {
		return p.(*entity.SubscriptionPlan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlanRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SubscriptionPlan, error) {
	args := m.Called(ctx, specs)
	if p := args.Get(0); p != nil {
		return p.([]*entity.SubscriptionPlan), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPlanRepo) CountSubscriptionsReferencing(ctx context.Context, planId uuid.UUID) (int64, error) {
	args := m.Called(ctx, planId)
	return args.Get(0).(int64), args.Error(1)
}

type mockSubscriptionRepo struct{ mock.Mock }

func (m *mockSubscriptionRepo) GetOrCreateByUser(ctx context.Context, userId uuid.UUID) (*entity.UserSubscription, error) {
	args := m.Called(ctx, userId)
	if s := args.Get(0); s != nil {
		return s.(*entity.UserSubscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSubscriptionRepo) Update(ctx context.Context, sub *entity.UserSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserSubscription, error) {
	args := m.Called(ctx, specs)
	if s := args.Get(0); s != nil {
		return s.(*entity.UserSubscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSubscriptionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserSubscription, error) {
	args := m.Called(ctx, specs)
	if s := args.Get(0); s != nil {
		return s.([]*entity.UserSubscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSubscriptionRepo) SaveCustomerId(ctx context.Context, userId uuid.UUID, customerId string) error {
	args := m.Called(ctx, userId, customerId)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) SaveCheckoutSession(ctx context.Context, userId uuid.UUID, sessionId string) error {
	args := m.Called(ctx, userId, sessionId)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) Activate(ctx context.Context, userId uuid.UUID, act contract.Activation) (bool, error) {
	args := m.Called(ctx, userId, act)
	return args.Bool(0), args.Error(1)
}

func (m *mockSubscriptionRepo) MarkExpired(ctx context.Context, userId uuid.UUID, now time.Time) error {
	args := m.Called(ctx, userId, now)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) Cancel(ctx context.Context, userId uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, userId, at)
	return args.Bool(0), args.Error(1)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateCustomer(ctx context.Context, email, displayName string) (string, error) {
	args := m.Called(ctx, email, displayName)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreateProductAndPrice(ctx context.Context, plan *entity.SubscriptionPlan) (string, string, error) {
	args := m.Called(ctx, plan)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockGateway) CreatePrice(ctx context.Context, productId string, amountMinorUnits int64, currency string) (string, error) {
	args := m.Called(ctx, productId, amountMinorUnits, currency)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) RetirePrice(ctx context.Context, priceId string) error {
	args := m.Called(ctx, priceId)
	return args.Error(0)
}

func (m *mockGateway) UpdateProductMetadata(ctx context.Context, productId string, upd paymentgw.ProductUpdate) error {
	args := m.Called(ctx, productId, upd)
	return args.Error(0)
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, customerId, priceId string, userId, planId uuid.UUID) (*paymentgw.CheckoutSession, error) {
	args := m.Called(ctx, customerId, priceId, userId, planId)
	if s := args.Get(0); s != nil {
		return s.(*paymentgw.CheckoutSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) VerifyAndParseEvent(payload []byte, signatureHeader string) (*paymentgw.WebhookEvent, error) {
	args := m.Called(payload, signatureHeader)
	if e := args.Get(0); e != nil {
		return e.(*paymentgw.WebhookEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

// stubUnitOfWork hands out the mocked repositories; transaction control is a
// no-op in unit tests.
type stubUnitOfWork struct {
	users *mockUserRepo
	plans *mockPlanRepo
	subs  *mockSubscriptionRepo
}

func (u *stubUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *stubUnitOfWork) Commit() error                   { return nil }
func (u *stubUnitOfWork) Rollback() error                 { return nil }

func (u *stubUnitOfWork) UserRepository() contract.UserRepository { return u.users }
func (u *stubUnitOfWork) PlanRepository() contract.PlanRepository { return u.plans }
func (u *stubUnitOfWork) SubscriptionRepository() contract.SubscriptionRepository {
	return u.subs
}

type stubFactory struct{ uow *stubUnitOfWork }

func (f *stubFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

func newTestFixture() (*stubFactory, *mockUserRepo, *mockPlanRepo, *mockSubscriptionRepo, *mockGateway) {
	users := &mockUserRepo{}
	plans := &mockPlanRepo{}
	subs := &mockSubscriptionRepo{}
	gateway := &mockGateway{}
	factory := &stubFactory{uow: &stubUnitOfWork{users: users, plans: plans, subs: subs}}
	return factory, users, plans, subs, gateway
}
