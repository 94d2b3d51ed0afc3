// Package testutil provides in-memory stores and fixtures for handler and
// route tests that should not need a running MongoDB.
package testutil

import (
	"context"
	"shopease/models"
	"shopease/store"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemStore keeps every collection in memory and mirrors the query semantics
// of the store package (case-insensitive emails, unique users.email and
// payments.orderId, conditional order updates).
type MemStore struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]models.User
	products map[primitive.ObjectID]models.Product
	cart     map[primitive.ObjectID]models.CartItem
	orders   map[primitive.ObjectID]models.Order
	payments map[primitive.ObjectID]models.Payment
}

// NewMemStore creates an empty MemStore
func NewMemStore() *MemStore {
	return &MemStore{
		users:    map[primitive.ObjectID]models.User{},
		products: map[primitive.ObjectID]models.Product{},
		cart:     map[primitive.ObjectID]models.CartItem{},
		orders:   map[primitive.ObjectID]models.Order{},
		payments: map[primitive.ObjectID]models.Payment{},
	}
}

// Users, Products, Cart, Orders and Payments expose one collection each with
// the same method set as the matching store type.
func (m *MemStore) Users() *MemUsers       { return &MemUsers{m} }
func (m *MemStore) Products() *MemProducts { return &MemProducts{m} }
func (m *MemStore) Cart() *MemCart         { return &MemCart{m} }
func (m *MemStore) Orders() *MemOrders     { return &MemOrders{m} }
func (m *MemStore) Payments() *MemPayments { return &MemPayments{m} }

// WithinTx runs fn directly; MemStore behaves like a standalone server.
func (m *MemStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// InTransaction is always false
func (m *MemStore) InTransaction(context.Context) bool { return false }

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// =====================
// Users
// =====================

type MemUsers struct{ m *MemStore }

func (s *MemUsers) Create(_ context.Context, u models.User) (models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u.Email = normEmail(u.Email)
	for _, existing := range s.m.users {
		if existing.Email == u.Email {
			return models.User{}, store.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.m.users[u.ID] = u
	return u, nil
}

func (s *MemUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		if u.Email == normEmail(email) {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (s *MemUsers) List(context.Context) ([]models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.User{}
	for _, u := range s.m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemUsers) Count(context.Context) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return int64(len(s.m.users)), nil
}

// =====================
// Products
// =====================

type MemProducts struct{ m *MemStore }

func (s *MemProducts) Create(_ context.Context, p models.Product) (models.Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.m.products[p.ID] = p
	return p, nil
}

func (s *MemProducts) Get(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	return p, nil
}

// sorted returns the products ordered by ID, the order MongoDB uses for _id sorts.
func (s *MemProducts) sorted() []models.Product {
	out := make([]models.Product, 0, len(s.m.products))
	for _, p := range s.m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out
}

func (s *MemProducts) List(context.Context) ([]models.Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.sorted(), nil
}

func (s *MemProducts) Page(_ context.Context, f models.ProductFilter) (models.ProductPage, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	f = store.NormalizeFilter(f)

	matched := []models.Product{}
	for _, p := range s.sorted() {
		if f.Category != "" && !strings.EqualFold(f.Category, "all") && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, p)
	}

	start := (f.Page - 1) * f.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return models.ProductPage{
		Products:   matched[start:end],
		Total:      int64(len(matched)),
		Page:       f.Page,
		TotalPages: store.TotalPages(int64(len(matched)), f.Limit),
	}, nil
}

func (s *MemProducts) Popular(_ context.Context, n int) ([]models.Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := s.sorted()
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderCount > out[j].OrderCount })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *MemProducts) Update(_ context.Context, id primitive.ObjectID, upd models.ProductUpdate) (models.Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.products[id]
	if !ok {
		return models.Product{}, store.ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Image != nil {
		p.Image = *upd.Image
	}
	if upd.Brand != nil {
		p.Brand = *upd.Brand
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	s.m.products[id] = p
	return p, nil
}

func (s *MemProducts) Delete(_ context.Context, id primitive.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.m.products, id)
	return nil
}

func (s *MemProducts) AddOrderCount(_ context.Context, id primitive.ObjectID, delta int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.products[id]
	if !ok || p.OrderCount+delta < 0 {
		return store.ErrNotFound
	}
	p.OrderCount += delta
	s.m.products[id] = p
	return nil
}

func (s *MemProducts) Count(context.Context) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return int64(len(s.m.products)), nil
}

// =====================
// Cart
// =====================

type MemCart struct{ m *MemStore }

func (s *MemCart) Add(_ context.Context, item models.CartItem) (models.CartItem, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item.ID = primitive.NewObjectID()
	item.UserEmail = normEmail(item.UserEmail)
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	s.m.cart[item.ID] = item
	return item, nil
}

func (s *MemCart) Get(_ context.Context, id primitive.ObjectID) (models.CartItem, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item, ok := s.m.cart[id]
	if !ok {
		return models.CartItem{}, store.ErrNotFound
	}
	return item, nil
}

func (s *MemCart) ListByEmail(_ context.Context, email string) ([]models.CartItem, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.CartItem{}
	for _, item := range s.m.cart {
		if item.UserEmail == normEmail(email) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

func (s *MemCart) Delete(_ context.Context, id primitive.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.cart[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.m.cart, id)
	return nil
}

// =====================
// Orders
// =====================

type MemOrders struct{ m *MemStore }

func (s *MemOrders) Create(_ context.Context, o models.Order) (models.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	o.ID = primitive.NewObjectID()
	o.CustomerEmail = normEmail(o.CustomerEmail)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	s.m.orders[o.ID] = o
	return o, nil
}

func (s *MemOrders) Get(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	o, ok := s.m.orders[id]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	return o, nil
}

func (s *MemOrders) filter(keep func(models.Order) bool) []models.Order {
	out := []models.Order{}
	for _, o := range s.m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemOrders) ListByEmail(_ context.Context, email string) ([]models.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.filter(func(o models.Order) bool { return o.CustomerEmail == normEmail(email) }), nil
}

func (s *MemOrders) List(context.Context) ([]models.Order, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.filter(func(models.Order) bool { return true }), nil
}

func (s *MemOrders) MarkPaid(_ context.Context, id primitive.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	o, ok := s.m.orders[id]
	if !ok || o.IsPaid() {
		return store.ErrNotFound
	}
	o.PaymentStatus = models.PaymentPaid
	s.m.orders[id] = o
	return nil
}

func (s *MemOrders) DeleteUnpaid(_ context.Context, id primitive.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	o, ok := s.m.orders[id]
	if !ok || o.IsPaid() {
		return store.ErrNotFound
	}
	delete(s.m.orders, id)
	return nil
}

func (s *MemOrders) Delete(_ context.Context, id primitive.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.orders, id)
	return nil
}

func (s *MemOrders) SetConfirmation(_ context.Context, id primitive.ObjectID, status string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	o, ok := s.m.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	o.ConfirmationStatus = status
	s.m.orders[id] = o
	return nil
}

func (s *MemOrders) Count(context.Context) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return int64(len(s.m.orders)), nil
}

func (s *MemOrders) MonthlyCounts(context.Context) ([]models.MonthlyCount, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	counts := map[string]int64{}
	for _, o := range s.m.orders {
		counts[o.CreatedAt.UTC().Format("2006-01")]++
	}
	out := []models.MonthlyCount{}
	for month, n := range counts {
		out = append(out, models.MonthlyCount{Month: month, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// =====================
// Payments
// =====================

type MemPayments struct{ m *MemStore }

func (s *MemPayments) Create(_ context.Context, p models.Payment) (models.Payment, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.payments {
		if existing.OrderID == p.OrderID {
			return models.Payment{}, store.ErrDuplicate
		}
	}
	p.ID = primitive.NewObjectID()
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	s.m.payments[p.ID] = p
	return p, nil
}

func (s *MemPayments) Delete(_ context.Context, id primitive.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.payments, id)
	return nil
}

func (s *MemPayments) FindByOrder(_ context.Context, orderID primitive.ObjectID) (models.Payment, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, p := range s.m.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return models.Payment{}, store.ErrNotFound
}

func (s *MemPayments) Revenue(context.Context) (float64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var total float64
	for _, p := range s.m.payments {
		total += p.Amount
	}
	return total, nil
}
