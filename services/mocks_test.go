package services

import (
	"context"
	"shopease/models"
	"shopease/payments"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// =====================
// Mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, o models.Order) (models.Order, error) {
	args := m.Called(ctx, o)
	if fn, ok := args.Get(0).(func(context.Context, models.Order) models.Order); ok {
		return fn(ctx, o), args.Error(1)
	}
	created, _ := args.Get(0).(models.Order)
	return created, args.Error(1)
}

func (m *OrderRepoMock) Get(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(models.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	args := m.Called(ctx, email)
	items, _ := args.Get(0).([]models.Order)
	return items, args.Error(1)
}

func (m *OrderRepoMock) List(ctx context.Context) ([]models.Order, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]models.Order)
	return items, args.Error(1)
}

func (m *OrderRepoMock) MarkPaid(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *OrderRepoMock) DeleteUnpaid(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *OrderRepoMock) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *OrderRepoMock) SetConfirmation(ctx context.Context, id primitive.ObjectID, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) Get(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(models.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) AddOrderCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}

type PaymentRepoMock struct{ mock.Mock }

func (m *PaymentRepoMock) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	args := m.Called(ctx, p)
	if fn, ok := args.Get(0).(func(context.Context, models.Payment) models.Payment); ok {
		return fn(ctx, p), args.Error(1)
	}
	created, _ := args.Get(0).(models.Payment)
	return created, args.Error(1)
}

func (m *PaymentRepoMock) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

type CartRemoverMock struct{ mock.Mock }

func (m *CartRemoverMock) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

type ProcessorMock struct{ mock.Mock }

func (m *ProcessorMock) CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error) {
	args := m.Called(ctx, req)
	in, _ := args.Get(0).(payments.Intent)
	return in, args.Error(1)
}

func (m *ProcessorMock) GetIntent(ctx context.Context, id string) (payments.Intent, error) {
	args := m.Called(ctx, id)
	in, _ := args.Get(0).(payments.Intent)
	return in, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, u models.User) (models.User, error) {
	args := m.Called(ctx, u)
	created, _ := args.Get(0).(models.User)
	return created, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(models.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]models.User)
	return items, args.Error(1)
}

// fakeTx runs fn directly. transactional controls what InTransaction reports,
// so both the transaction and the compensation paths can be exercised.
type fakeTx struct {
	transactional bool
	calls         int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

func (f *fakeTx) InTransaction(context.Context) bool { return f.transactional }

type fakeIssuer struct {
	token string
	err   error
}

func (f fakeIssuer) Issue(models.User) (string, error) { return f.token, f.err }
