// Package store is the MongoDB persistence layer. Each collection has its own
// store type; services depend on them through small interfaces.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	UsersCollection    = "users"
	ProductsCollection = "products"
	CartCollection     = "cartProducts"
	OrdersCollection   = "orders"
	PaymentsCollection = "payments"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate")
)

// Stores bundles one store per collection.
type Stores struct {
	Users    *UserStore
	Products *ProductStore
	Cart     *CartStore
	Orders   *OrderStore
	Payments *PaymentStore
}

// New builds every store over db.
func New(db *mongo.Database) *Stores {
	return &Stores{
		Users:    NewUserStore(db),
		Products: NewProductStore(db),
		Cart:     NewCartStore(db),
		Orders:   NewOrderStore(db),
		Payments: NewPaymentStore(db),
	}
}

// EnsureIndexes creates the indexes the service relies on. The unique index on
// payments.orderId is what guarantees a single payment per order.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ProductsCollection: {
			{Keys: bson.D{{Key: "orderCount", Value: -1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
		},
		CartCollection: {
			{Keys: bson.D{{Key: "userEmail", Value: 1}}},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "customer_email", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		PaymentsCollection: {
			{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	out := []T{}
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, cur.Err()
}
