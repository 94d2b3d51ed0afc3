package services

import (
	"context"
	"errors"
	"shopease/events"
	"shopease/models"
	"shopease/payments"
	"shopease/store"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type orderFixture struct {
	orders    *OrderRepoMock
	products  *ProductRepoMock
	payments  *PaymentRepoMock
	cart      *CartRemoverMock
	processor *ProcessorMock
	tx        *fakeTx
}

func newOrderFixture(transactional bool) *orderFixture {
	return &orderFixture{
		orders:    new(OrderRepoMock),
		products:  new(ProductRepoMock),
		payments:  new(PaymentRepoMock),
		cart:      new(CartRemoverMock),
		processor: new(ProcessorMock),
		tx:        &fakeTx{transactional: transactional},
	}
}

func (f *orderFixture) service(verifyIntent bool) *OrderService {
	return NewOrderService(OrderDeps{
		Orders:       f.orders,
		Products:     f.products,
		Payments:     f.payments,
		Cart:         f.cart,
		Tx:           f.tx,
		Processor:    f.processor,
		VerifyIntent: verifyIntent,
	})
}

func unpaidOrder(total float64) models.Order {
	return models.Order{
		ID:                 primitive.NewObjectID(),
		ProductID:          primitive.NewObjectID(),
		ProductName:        "Kettle",
		Quantity:           1,
		TotalPrice:         total,
		CustomerEmail:      "ann@example.com",
		PaymentStatus:      models.PaymentUnpaid,
		ConfirmationStatus: models.ConfirmationPending,
	}
}

// =====================
// CreateOrder
// =====================

func TestCreateOrder_PricesFromCatalogAndBumpsCount(t *testing.T) {
	f := newOrderFixture(true)
	pid := primitive.NewObjectID()
	oid := primitive.NewObjectID()

	f.products.On("Get", mock.Anything, pid).Return(models.Product{ID: pid, Name: "Mug", Price: 19.99}, nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o models.Order) bool {
		return o.TotalPrice == 39.98 && o.PaymentStatus == models.PaymentUnpaid &&
			o.ConfirmationStatus == models.ConfirmationPending && o.CustomerEmail == "ann@example.com"
	})).Return(func(_ context.Context, o models.Order) models.Order {
		o.ID = oid
		return o
	}, nil)
	f.products.On("AddOrderCount", mock.Anything, pid, 1).Return(nil)

	got, err := f.service(false).CreateOrder(context.Background(), CreateOrderInput{
		ProductID:     pid.Hex(),
		Quantity:      2,
		CustomerEmail: " Ann@Example.com ",
		CustomerName:  "Ann",
	})
	require.NoError(t, err)
	assert.Equal(t, oid, got.ID)
	assert.Equal(t, "Mug", got.ProductName)
	assert.Equal(t, 39.98, got.TotalPrice)
	assert.Equal(t, 1, f.tx.calls)
	f.orders.AssertExpectations(t)
	f.products.AssertExpectations(t)
}

// stalledPublisher blocks every Publish until release is closed.
type stalledPublisher struct {
	release   chan struct{}
	published chan events.Event
}

func (p *stalledPublisher) Publish(ctx context.Context, e events.Event) error {
	select {
	case <-p.release:
		p.published <- e
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestCreateOrder_SlowBrokerDoesNotDelayResponse(t *testing.T) {
	f := newOrderFixture(true)
	pid := primitive.NewObjectID()
	f.products.On("Get", mock.Anything, pid).Return(models.Product{ID: pid, Price: 10}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(func(_ context.Context, o models.Order) models.Order {
		o.ID = primitive.NewObjectID()
		return o
	}, nil)
	f.products.On("AddOrderCount", mock.Anything, pid, 1).Return(nil)

	pub := &stalledPublisher{release: make(chan struct{}), published: make(chan events.Event, 1)}
	svc := NewOrderService(OrderDeps{
		Orders:   f.orders,
		Products: f.products,
		Payments: f.payments,
		Cart:     f.cart,
		Tx:       f.tx,
		Events:   pub,
	})

	done := make(chan error, 1)
	go func() {
		_, err := svc.CreateOrder(context.Background(), CreateOrderInput{ProductID: pid.Hex(), CustomerEmail: "ann@example.com"})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("CreateOrder waited for the event publisher")
	}

	close(pub.release)
	svc.Wait()
	e := <-pub.published
	assert.Equal(t, events.OrderCreated, e.Type)
	assert.False(t, e.OccurredAt.IsZero())
}

func TestCreateOrder_DefaultsQuantityToOne(t *testing.T) {
	f := newOrderFixture(true)
	pid := primitive.NewObjectID()

	f.products.On("Get", mock.Anything, pid).Return(models.Product{ID: pid, Price: 10}, nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o models.Order) bool {
		return o.Quantity == 1 && o.TotalPrice == 10
	})).Return(models.Order{ID: primitive.NewObjectID(), Quantity: 1, TotalPrice: 10}, nil)
	f.products.On("AddOrderCount", mock.Anything, pid, 1).Return(nil)

	got, err := f.service(false).CreateOrder(context.Background(), CreateOrderInput{ProductID: pid.Hex(), CustomerEmail: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.TotalPrice)
}

func TestCreateOrder_InvalidProductID(t *testing.T) {
	f := newOrderFixture(true)

	_, err := f.service(false).CreateOrder(context.Background(), CreateOrderInput{ProductID: "nope", CustomerEmail: "a@b.c"})
	assert.ErrorIs(t, err, ErrInvalidID)
	f.products.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newOrderFixture(true)
	pid := primitive.NewObjectID().Hex()

	_, err := f.service(false).CreateOrder(context.Background(), CreateOrderInput{ProductID: pid, Quantity: -1, CustomerEmail: "a@b.c"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.service(false).CreateOrder(context.Background(), CreateOrderInput{ProductID: pid, Quantity: 1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	f := newOrderFixture(true)
	pid := primitive.NewObjectID()
	f.products.On("Get", mock.Anything, pid).Return(models.Product{}, store.ErrNotFound)

	_, err := f.service(false).CreateOrder(context.Background(), CreateOrderInput{ProductID: pid.Hex(), CustomerEmail: "a@b.c"})
	assert.ErrorIs(t, err, ErrNotFound)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_CompensatesWithoutTransaction(t *testing.T) {
	f := newOrderFixture(false)
	pid := primitive.NewObjectID()
	oid := primitive.NewObjectID()

	f.products.On("Get", mock.Anything, pid).Return(models.Product{ID: pid, Price: 5}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(models.Order{ID: oid}, nil)
	f.products.On("AddOrderCount", mock.Anything, pid, 1).Return(errors.New("write conflict"))
	f.orders.On("Delete", mock.Anything, oid).Return(nil)

	_, err := f.service(false).CreateOrder(context.Background(), CreateOrderInput{ProductID: pid.Hex(), CustomerEmail: "a@b.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "increment order count")
	f.orders.AssertCalled(t, "Delete", mock.Anything, oid)
}

func TestCreateOrder_NoCompensationInsideTransaction(t *testing.T) {
	f := newOrderFixture(true)
	pid := primitive.NewObjectID()

	f.products.On("Get", mock.Anything, pid).Return(models.Product{ID: pid, Price: 5}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(models.Order{ID: primitive.NewObjectID()}, nil)
	f.products.On("AddOrderCount", mock.Anything, pid, 1).Return(store.ErrNotFound)

	_, err := f.service(false).CreateOrder(context.Background(), CreateOrderInput{ProductID: pid.Hex(), CustomerEmail: "a@b.c"})
	assert.ErrorIs(t, err, ErrNotFound)
	f.orders.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCreateOrder_RemovesCartLine(t *testing.T) {
	f := newOrderFixture(true)
	pid := primitive.NewObjectID()
	cid := primitive.NewObjectID()

	f.products.On("Get", mock.Anything, pid).Return(models.Product{ID: pid, Price: 5}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(models.Order{ID: primitive.NewObjectID()}, nil)
	f.products.On("AddOrderCount", mock.Anything, pid, 1).Return(nil)
	f.cart.On("Delete", mock.Anything, cid).Return(store.ErrNotFound)

	_, err := f.service(false).CreateOrder(context.Background(), CreateOrderInput{
		ProductID: pid.Hex(), CustomerEmail: "a@b.c", CartItemID: cid.Hex(),
	})
	require.NoError(t, err)
	f.cart.AssertExpectations(t)
}

// =====================
// CreatePaymentIntent
// =====================

func TestCreatePaymentIntent_AmountMismatchNeverReachesProcessor(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(10.00)
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)

	_, err := f.service(false).CreatePaymentIntent(context.Background(), order.ID.Hex(), 999)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	f.processor.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
}

func TestCreatePaymentIntent_ExactCents(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(19.99)
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)
	f.processor.On("CreateIntent", mock.Anything, payments.IntentRequest{
		OrderID:       order.ID.Hex(),
		AmountCents:   1999,
		Currency:      "usd",
		CustomerEmail: order.CustomerEmail,
	}).Return(payments.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil)

	secret, err := f.service(false).CreatePaymentIntent(context.Background(), order.ID.Hex(), 1999)
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", secret)
	f.processor.AssertExpectations(t)
}

func TestCreatePaymentIntent_Rejections(t *testing.T) {
	paid := unpaidOrder(10)
	paid.PaymentStatus = models.PaymentPaid
	missing := primitive.NewObjectID()

	unpaid := unpaidOrder(10)

	f := newOrderFixture(true)
	f.orders.On("Get", mock.Anything, paid.ID).Return(paid, nil)
	f.orders.On("Get", mock.Anything, unpaid.ID).Return(unpaid, nil)
	f.orders.On("Get", mock.Anything, missing).Return(models.Order{}, store.ErrNotFound)
	svc := f.service(false)

	tests := []struct {
		name    string
		orderID string
		cents   int64
		want    error
	}{
		{"bad id", "xyz", 1000, ErrInvalidID},
		{"zero amount", unpaid.ID.Hex(), 0, ErrAmountMismatch},
		{"negative amount", unpaid.ID.Hex(), -1000, ErrAmountMismatch},
		{"missing order", missing.Hex(), 1000, ErrNotFound},
		{"missing order with zero amount", missing.Hex(), 0, ErrNotFound},
		{"already paid", paid.ID.Hex(), 1000, ErrAlreadyPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePaymentIntent(context.Background(), tt.orderID, tt.cents)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	f.processor.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
}

// =====================
// ConfirmPayment
// =====================

func TestConfirmPayment_RecordsAndMarksPaid(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(25.50)
	pid := primitive.NewObjectID()

	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)
	f.payments.On("Create", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
		return p.OrderID == order.ID && p.Amount == 25.50 && p.TransactionID == "pi_9" &&
			p.Method == "card" && p.CustomerEmail == order.CustomerEmail
	})).Return(func(_ context.Context, p models.Payment) models.Payment {
		p.ID = pid
		return p
	}, nil)
	f.orders.On("MarkPaid", mock.Anything, order.ID).Return(nil)

	got, err := f.service(false).ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID:       order.ID.Hex(),
		Amount:        25.5,
		TransactionID: "pi_9",
	})
	require.NoError(t, err)
	assert.Equal(t, pid, got.ID)
	f.payments.AssertExpectations(t)
	f.orders.AssertExpectations(t)
}

func TestConfirmPayment_AlreadyPaid(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(10)
	order.PaymentStatus = models.PaymentPaid
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)

	_, err := f.service(false).ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID: order.ID.Hex(), Amount: 10, TransactionID: "pi_1",
	})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConfirmPayment_ConcurrentDuplicate(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(10)
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(models.Payment{}, store.ErrDuplicate)

	_, err := f.service(false).ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID: order.ID.Hex(), Amount: 10, TransactionID: "pi_1",
	})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
}

func TestConfirmPayment_AmountMismatch(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(10)
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)

	_, err := f.service(false).ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID: order.ID.Hex(), Amount: 9.99, TransactionID: "pi_1",
	})
	assert.ErrorIs(t, err, ErrAmountMismatch)
	f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConfirmPayment_RequiresTransactionID(t *testing.T) {
	f := newOrderFixture(true)

	_, err := f.service(false).ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID: primitive.NewObjectID().Hex(), Amount: 10,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfirmPayment_UndoesPaymentWithoutTransaction(t *testing.T) {
	f := newOrderFixture(false)
	order := unpaidOrder(10)
	pid := primitive.NewObjectID()

	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(models.Payment{ID: pid}, nil)
	f.orders.On("MarkPaid", mock.Anything, order.ID).Return(errors.New("socket closed"))
	f.payments.On("Delete", mock.Anything, pid).Return(nil)

	_, err := f.service(false).ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID: order.ID.Hex(), Amount: 10, TransactionID: "pi_1",
	})
	require.Error(t, err)
	f.payments.AssertCalled(t, "Delete", mock.Anything, pid)
}

func TestConfirmPayment_RaceLostToCancel(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(10)

	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil).Once()
	f.orders.On("Get", mock.Anything, order.ID).Return(models.Order{}, store.ErrNotFound)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(models.Payment{ID: primitive.NewObjectID()}, nil)
	f.orders.On("MarkPaid", mock.Anything, order.ID).Return(store.ErrNotFound)

	_, err := f.service(false).ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID: order.ID.Hex(), Amount: 10, TransactionID: "pi_1",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmPayment_VerifiesIntent(t *testing.T) {
	order := unpaidOrder(12.34)

	tests := []struct {
		name   string
		intent payments.Intent
	}{
		{"not captured", payments.Intent{Status: "requires_payment_method", AmountCents: 1234, OrderID: order.ID.Hex()}},
		{"wrong amount", payments.Intent{Status: payments.StatusSucceeded, AmountCents: 100, OrderID: order.ID.Hex()}},
		{"other order", payments.Intent{Status: payments.StatusSucceeded, AmountCents: 1234, OrderID: primitive.NewObjectID().Hex()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(true)
			f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)
			f.processor.On("GetIntent", mock.Anything, "pi_7").Return(tt.intent, nil)

			_, err := f.service(true).ConfirmPayment(context.Background(), ConfirmPaymentInput{
				OrderID: order.ID.Hex(), Amount: 12.34, TransactionID: "pi_7",
			})
			assert.ErrorIs(t, err, ErrPaymentNotCaptured)
			f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestConfirmPayment_VerifiesIntent_SubCentTotal(t *testing.T) {
	order := unpaidOrder(12.345)
	f := newOrderFixture(true)
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)
	f.processor.On("GetIntent", mock.Anything, "pi_7").
		Return(payments.Intent{Status: payments.StatusSucceeded, AmountCents: 0, OrderID: order.ID.Hex()}, nil)

	_, err := f.service(true).ConfirmPayment(context.Background(), ConfirmPaymentInput{
		OrderID: order.ID.Hex(), Amount: 12.345, TransactionID: "pi_7",
	})
	assert.ErrorIs(t, err, ErrPaymentNotCaptured)
	f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// =====================
// CancelOrder / ConfirmDelivery / reads
// =====================

func TestCancelOrder_PaidIsKept(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(10)
	order.PaymentStatus = models.PaymentPaid
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)

	err := f.service(false).CancelOrder(context.Background(), order.ID.Hex(), Actor{Email: order.CustomerEmail})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	f.orders.AssertNotCalled(t, "DeleteUnpaid", mock.Anything, mock.Anything)
}

func TestCancelOrder_DeletesAndDecrements(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(10)
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)
	f.orders.On("DeleteUnpaid", mock.Anything, order.ID).Return(nil)
	f.products.On("AddOrderCount", mock.Anything, order.ProductID, -1).Return(nil)

	err := f.service(false).CancelOrder(context.Background(), order.ID.Hex(), Actor{Email: "ANN@example.com"})
	require.NoError(t, err)
	f.orders.AssertExpectations(t)
	f.products.AssertExpectations(t)
}

func TestCancelOrder_ForeignOrder(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(10)
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)

	err := f.service(false).CancelOrder(context.Background(), order.ID.Hex(), Actor{Email: "bob@example.com"})
	assert.ErrorIs(t, err, ErrForbidden)

	f.orders.On("DeleteUnpaid", mock.Anything, order.ID).Return(nil)
	f.products.On("AddOrderCount", mock.Anything, order.ProductID, -1).Return(store.ErrNotFound)
	err = f.service(false).CancelOrder(context.Background(), order.ID.Hex(), Actor{Admin: true})
	assert.NoError(t, err)
}

func TestCancelOrder_PaidBetweenReadAndDelete(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(10)
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)
	f.orders.On("DeleteUnpaid", mock.Anything, order.ID).Return(store.ErrNotFound)

	err := f.service(false).CancelOrder(context.Background(), order.ID.Hex(), Actor{Admin: true})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	f.products.AssertNotCalled(t, "AddOrderCount", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmDelivery(t *testing.T) {
	f := newOrderFixture(true)
	found := primitive.NewObjectID()
	missing := primitive.NewObjectID()
	f.orders.On("SetConfirmation", mock.Anything, found, models.ConfirmationConfirmed).Return(nil)
	f.orders.On("SetConfirmation", mock.Anything, missing, models.ConfirmationConfirmed).Return(store.ErrNotFound)
	svc := f.service(false)

	assert.NoError(t, svc.ConfirmDelivery(context.Background(), found.Hex()))
	assert.ErrorIs(t, svc.ConfirmDelivery(context.Background(), missing.Hex()), ErrNotFound)
	assert.ErrorIs(t, svc.ConfirmDelivery(context.Background(), "zzz"), ErrInvalidID)
}

func TestGetOrder_Ownership(t *testing.T) {
	f := newOrderFixture(true)
	order := unpaidOrder(10)
	f.orders.On("Get", mock.Anything, order.ID).Return(order, nil)
	svc := f.service(false)

	got, err := svc.GetOrder(context.Background(), order.ID.Hex(), Actor{Email: order.CustomerEmail})
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = svc.GetOrder(context.Background(), order.ID.Hex(), Actor{Email: "eve@example.com"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListOrdersByEmail_Ownership(t *testing.T) {
	f := newOrderFixture(true)
	f.orders.On("ListByEmail", mock.Anything, "ann@example.com").Return([]models.Order{unpaidOrder(1)}, nil)
	svc := f.service(false)

	items, err := svc.ListOrdersByEmail(context.Background(), "ann@example.com", Actor{Email: "ann@example.com"})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = svc.ListOrdersByEmail(context.Background(), "ann@example.com", Actor{Email: "bob@example.com"})
	assert.ErrorIs(t, err, ErrForbidden)
}
