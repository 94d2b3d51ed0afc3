package services

import (
	"context"
	"errors"
	"fmt"
	"shopease/events"
	"shopease/models"
	"shopease/payments"
	"shopease/store"
	"shopease/utils"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// OrderRepo is the order persistence the coordinator needs
type OrderRepo interface {
	Create(ctx context.Context, o models.Order) (models.Order, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	ListByEmail(ctx context.Context, email string) ([]models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID) error
	DeleteUnpaid(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	SetConfirmation(ctx context.Context, id primitive.ObjectID, status string) error
}

// ProductRepo is the product persistence the coordinator needs
type ProductRepo interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	AddOrderCount(ctx context.Context, id primitive.ObjectID, delta int) error
}

// PaymentRepo is the payment persistence the coordinator needs
type PaymentRepo interface {
	Create(ctx context.Context, p models.Payment) (models.Payment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CartRemover removes a cart line once it has been ordered
type CartRemover interface {
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TxRunner groups writes into one transaction when the database allows it
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	InTransaction(ctx context.Context) bool
}

// OrderDeps are the collaborators of an OrderService
type OrderDeps struct {
	Orders    OrderRepo
	Products  ProductRepo
	Payments  PaymentRepo
	Cart      CartRemover
	Tx        TxRunner
	Processor payments.Processor
	Mailer    utils.Mailer
	Events    events.Publisher
	Metrics   *Metrics
	Log       *zap.Logger

	Currency string
	// VerifyIntent makes ConfirmPayment check the processor's intent
	// before recording a payment.
	VerifyIntent bool
	// NotifyTimeout bounds the async receipt email and event publishing.
	NotifyTimeout time.Duration
}

// OrderService coordinates orders and payments.
//
// An order moves Unpaid -> Paid exactly once, or is deleted while Unpaid.
// Paired writes (order + product counter, payment + order status) run in one
// transaction; without transaction support the first write is undone when
// the second fails.
type OrderService struct {
	orders        OrderRepo
	products      ProductRepo
	paymentStore  PaymentRepo
	cart          CartRemover
	tx            TxRunner
	processor     payments.Processor
	mailer        utils.Mailer
	events        events.Publisher
	metrics       *Metrics
	log           *zap.Logger
	currency      string
	verifyIntent  bool
	notifyTimeout time.Duration

	// pending tracks receipt and event goroutines still running.
	pending sync.WaitGroup
}

// NewOrderService creates an OrderService
func NewOrderService(d OrderDeps) *OrderService {
	s := &OrderService{
		orders:        d.Orders,
		products:      d.Products,
		paymentStore:  d.Payments,
		cart:          d.Cart,
		tx:            d.Tx,
		processor:     d.Processor,
		mailer:        d.Mailer,
		events:        d.Events,
		metrics:       d.Metrics,
		log:           d.Log,
		currency:      d.Currency,
		verifyIntent:  d.VerifyIntent,
		notifyTimeout: d.NotifyTimeout,
	}
	if s.processor == nil {
		s.processor = payments.Disabled{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.currency == "" {
		s.currency = "usd"
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = 10 * time.Second
	}
	return s
}

// CreateOrderInput is a checkout of one product
type CreateOrderInput struct {
	ProductID     string
	Quantity      int
	CustomerEmail string
	CustomerName  string
	CartItemID    string
}

// CreateOrder persists an unpaid order priced from the catalog and bumps the
// product's order counter.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (models.Order, error) {
	pid, err := primitive.ObjectIDFromHex(in.ProductID)
	if err != nil {
		return models.Order{}, ErrInvalidID
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return models.Order{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	email := strings.ToLower(strings.TrimSpace(in.CustomerEmail))
	if email == "" {
		return models.Order{}, fmt.Errorf("%w: customer_email is required", ErrValidation)
	}

	product, err := s.products.Get(ctx, pid)
	if err != nil {
		return models.Order{}, notFoundOr(err, "load product")
	}

	order := models.Order{
		ProductID:          pid,
		ProductName:        product.Name,
		Quantity:           in.Quantity,
		TotalPrice:         LineTotal(product.Price, in.Quantity),
		CustomerEmail:      email,
		CustomerName:       strings.TrimSpace(in.CustomerName),
		PaymentStatus:      models.PaymentUnpaid,
		ConfirmationStatus: models.ConfirmationPending,
		CreatedAt:          time.Now().UTC(),
	}

	var placed models.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := s.orders.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := s.products.AddOrderCount(ctx, pid, 1); err != nil {
			if !s.tx.InTransaction(ctx) {
				s.compensate(ctx, "create_order", func(ctx context.Context) error {
					return s.orders.Delete(ctx, created.ID)
				}, zap.String("order_id", created.ID.Hex()))
			}
			return fmt.Errorf("increment order count: %w", err)
		}
		placed = created
		return nil
	})
	if err != nil {
		return models.Order{}, notFoundOr(err, "create order")
	}

	if in.CartItemID != "" {
		if cid, err := primitive.ObjectIDFromHex(in.CartItemID); err == nil && s.cart != nil {
			if err := s.cart.Delete(ctx, cid); err != nil && !errors.Is(err, store.ErrNotFound) {
				s.log.Warn("failed to remove ordered cart item", zap.String("cart_item_id", in.CartItemID), zap.Error(err))
			}
		}
	}

	s.metrics.OrdersCreated.Inc()
	s.publish(events.Event{
		Type:          events.OrderCreated,
		OrderID:       placed.ID.Hex(),
		ProductID:     pid.Hex(),
		CustomerEmail: placed.CustomerEmail,
		Amount:        placed.TotalPrice,
	})
	return placed, nil
}

// CreatePaymentIntent checks the client's amount against the order total and
// asks the processor for an intent of exactly that amount. Nothing reaches
// the processor unless the amounts agree.
func (s *OrderService) CreatePaymentIntent(ctx context.Context, orderID string, amountInCents int64) (string, error) {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return "", ErrInvalidID
	}

	order, err := s.orders.Get(ctx, oid)
	if err != nil {
		return "", notFoundOr(err, "load order")
	}
	if order.IsPaid() {
		s.reject("intent", "already_paid")
		return "", ErrAlreadyPaid
	}
	if amountInCents <= 0 || !MatchesCents(order.TotalPrice, amountInCents) {
		s.reject("intent", "amount_mismatch")
		s.log.Warn("payment intent amount mismatch",
			zap.String("order_id", orderID),
			zap.Int64("claimed_cents", amountInCents),
			zap.Float64("total_price", order.TotalPrice),
		)
		return "", ErrAmountMismatch
	}

	intent, err := s.processor.CreateIntent(ctx, payments.IntentRequest{
		OrderID:       orderID,
		AmountCents:   amountInCents,
		Currency:      s.currency,
		CustomerEmail: order.CustomerEmail,
	})
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	s.metrics.IntentsCreated.Inc()
	return intent.ClientSecret, nil
}

// ConfirmPaymentInput is what the client reports after the processor
// captured the charge
type ConfirmPaymentInput struct {
	OrderID       string
	Amount        float64
	CustomerEmail string
	TransactionID string
	Method        string
}

// ConfirmPayment records the payment and marks the order Paid. The amount is
// re-checked against the order total, and a second confirmation for the same
// order fails with ErrAlreadyPaid.
func (s *OrderService) ConfirmPayment(ctx context.Context, in ConfirmPaymentInput) (models.Payment, error) {
	oid, err := primitive.ObjectIDFromHex(in.OrderID)
	if err != nil {
		return models.Payment{}, ErrInvalidID
	}
	if strings.TrimSpace(in.TransactionID) == "" {
		return models.Payment{}, fmt.Errorf("%w: transactionId is required", ErrValidation)
	}
	if in.Method == "" {
		in.Method = "card"
	}

	order, err := s.orders.Get(ctx, oid)
	if err != nil {
		return models.Payment{}, notFoundOr(err, "load order")
	}
	if order.IsPaid() {
		s.reject("confirm", "already_paid")
		return models.Payment{}, ErrAlreadyPaid
	}
	if !SameAmount(in.Amount, order.TotalPrice) {
		s.reject("confirm", "amount_mismatch")
		return models.Payment{}, ErrAmountMismatch
	}
	if s.verifyIntent {
		if err := s.checkIntent(ctx, order, in.TransactionID); err != nil {
			return models.Payment{}, err
		}
	}

	email := in.CustomerEmail
	if email == "" {
		email = order.CustomerEmail
	}
	payment := models.Payment{
		OrderID:       oid,
		Amount:        order.TotalPrice,
		CustomerEmail: email,
		TransactionID: strings.TrimSpace(in.TransactionID),
		Method:        in.Method,
		PaidAt:        time.Now().UTC(),
	}

	var recorded models.Payment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := s.paymentStore.Create(ctx, payment)
		if errors.Is(err, store.ErrDuplicate) {
			return ErrAlreadyPaid
		}
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := s.orders.MarkPaid(ctx, oid); err != nil {
			if !s.tx.InTransaction(ctx) {
				s.compensate(ctx, "confirm_payment", func(ctx context.Context) error {
					return s.paymentStore.Delete(ctx, created.ID)
				}, zap.String("order_id", in.OrderID), zap.String("payment_id", created.ID.Hex()))
			}
			if errors.Is(err, store.ErrNotFound) {
				return s.whyNotUnpaid(ctx, oid)
			}
			return fmt.Errorf("mark order paid: %w", err)
		}
		recorded = created
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyPaid) {
			s.reject("confirm", "already_paid")
		}
		return models.Payment{}, notFoundOr(err, "confirm payment")
	}

	s.metrics.PaymentsRecorded.Inc()
	order.PaymentStatus = models.PaymentPaid
	s.sendReceipt(order, recorded)
	s.publish(events.Event{
		Type:          events.PaymentRecorded,
		OrderID:       in.OrderID,
		ProductID:     order.ProductID.Hex(),
		CustomerEmail: recorded.CustomerEmail,
		Amount:        recorded.Amount,
	})
	return recorded, nil
}

// checkIntent verifies with the processor that the transaction captured the
// order's full amount.
func (s *OrderService) checkIntent(ctx context.Context, order models.Order, transactionID string) error {
	intent, err := s.processor.GetIntent(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("fetch payment intent: %w", err)
	}
	cents, ok := ToCents(order.TotalPrice)
	switch {
	case !ok:
		s.reject("confirm", "total_not_cents")
	case intent.Status != payments.StatusSucceeded:
		s.reject("confirm", "not_captured")
	case intent.AmountCents != cents:
		s.reject("confirm", "intent_amount")
	case intent.OrderID != "" && intent.OrderID != order.ID.Hex():
		s.reject("confirm", "intent_order")
	default:
		return nil
	}
	return ErrPaymentNotCaptured
}

// whyNotUnpaid explains a conditional update that matched nothing.
func (s *OrderService) whyNotUnpaid(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.orders.Get(ctx, id); errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return ErrAlreadyPaid
}

// CancelOrder deletes an unpaid order and gives back its order count.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string, actor Actor) error {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return ErrInvalidID
	}
	order, err := s.orders.Get(ctx, oid)
	if err != nil {
		return notFoundOr(err, "load order")
	}
	if !actor.CanAccess(order.CustomerEmail) {
		return ErrForbidden
	}
	if order.IsPaid() {
		return ErrAlreadyPaid
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.orders.DeleteUnpaid(ctx, oid); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return s.whyNotUnpaid(ctx, oid)
			}
			return fmt.Errorf("delete order: %w", err)
		}
		if err := s.products.AddOrderCount(ctx, order.ProductID, -1); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// product deleted or counter already at zero; nothing to give back
				s.log.Info("order count not decremented",
					zap.String("order_id", orderID),
					zap.String("product_id", order.ProductID.Hex()),
				)
				return nil
			}
			if !s.tx.InTransaction(ctx) {
				s.metrics.Compensations.WithLabelValues("cancel_order", "skipped").Inc()
				s.log.Error("order deleted but order count not decremented",
					zap.String("order_id", orderID),
					zap.String("product_id", order.ProductID.Hex()),
					zap.Error(err),
				)
				return nil
			}
			return fmt.Errorf("decrement order count: %w", err)
		}
		return nil
	})
	if err != nil {
		return notFoundOr(err, "cancel order")
	}

	s.metrics.OrdersCancelled.Inc()
	s.publish(events.Event{
		Type:          events.OrderCancelled,
		OrderID:       orderID,
		ProductID:     order.ProductID.Hex(),
		CustomerEmail: order.CustomerEmail,
	})
	return nil
}

// ConfirmDelivery marks the order as confirmed. Payment is not required.
func (s *OrderService) ConfirmDelivery(ctx context.Context, orderID string) error {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return ErrInvalidID
	}
	if err := s.orders.SetConfirmation(ctx, oid, models.ConfirmationConfirmed); err != nil {
		return notFoundOr(err, "confirm order")
	}
	s.publish(events.Event{Type: events.OrderConfirmed, OrderID: orderID})
	return nil
}

// GetOrder returns one order if the actor may see it
func (s *OrderService) GetOrder(ctx context.Context, orderID string, actor Actor) (models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return models.Order{}, ErrInvalidID
	}
	order, err := s.orders.Get(ctx, oid)
	if err != nil {
		return models.Order{}, notFoundOr(err, "load order")
	}
	if !actor.CanAccess(order.CustomerEmail) {
		return models.Order{}, ErrForbidden
	}
	return order, nil
}

// ListOrdersByEmail returns a customer's orders
func (s *OrderService) ListOrdersByEmail(ctx context.Context, email string, actor Actor) ([]models.Order, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !actor.CanAccess(email) {
		return nil, ErrForbidden
	}
	return s.orders.ListByEmail(ctx, email)
}

// ListOrders returns every order
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.orders.List(ctx)
}

func (s *OrderService) reject(stage, reason string) {
	s.metrics.Rejections.WithLabelValues(stage, reason).Inc()
}

// compensate runs an undo write for a half-applied operation. It uses a
// fresh context so a cancelled request does not also cancel the undo.
func (s *OrderService) compensate(ctx context.Context, op string, undo func(context.Context) error, fields ...zap.Field) {
	undoCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := undo(undoCtx); err != nil {
		s.metrics.Compensations.WithLabelValues(op, "failed").Inc()
		s.log.Error("compensating write failed", append(fields, zap.String("operation", op), zap.Error(err))...)
		return
	}
	s.metrics.Compensations.WithLabelValues(op, "applied").Inc()
	s.log.Warn("compensating write applied", append(fields, zap.String("operation", op))...)
}

func (s *OrderService) sendReceipt(order models.Order, payment models.Payment) {
	if s.mailer == nil || payment.CustomerEmail == "" {
		return
	}
	s.background(func(ctx context.Context) {
		subject, body := utils.PaymentReceipt(order, payment)
		if err := s.mailer.Send(ctx, payment.CustomerEmail, subject, body); err != nil {
			s.log.Warn("failed to send payment receipt", zap.String("to", payment.CustomerEmail), zap.Error(err))
		}
	})
}

// publish sends e off the request path. The write has already committed, so
// a slow or unreachable broker only costs the event.
func (s *OrderService) publish(e events.Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	s.background(func(ctx context.Context) {
		if err := s.events.Publish(ctx, e); err != nil {
			s.log.Warn("failed to publish event", zap.String("type", e.Type), zap.String("order_id", e.OrderID), zap.Error(err))
		}
	})
}

func (s *OrderService) background(fn func(ctx context.Context)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until every receipt and event started so far has finished.
// Call it on shutdown before closing the mailer or publisher.
func (s *OrderService) Wait() {
	s.pending.Wait()
}

// notFoundOr maps store.ErrNotFound to ErrNotFound and wraps anything else
// that is not already a service error.
func notFoundOr(err error, op string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case isServiceError(err):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isServiceError(err error) bool {
	for _, target := range []error{ErrNotFound, ErrInvalidID, ErrAmountMismatch, ErrAlreadyPaid, ErrForbidden, ErrPaymentNotCaptured, ErrValidation} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
