package store

import (
	"context"
	"shopease/models"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// PaymentStore persists payments. Payments are never updated.
type PaymentStore struct {
	c *mongo.Collection
}

// NewPaymentStore creates a PaymentStore over db
func NewPaymentStore(db *mongo.Database) *PaymentStore {
	return &PaymentStore{c: db.Collection(PaymentsCollection)}
}

// Create inserts a payment. A second payment for the same order fails with
// ErrDuplicate (unique index on orderId).
func (s *PaymentStore) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	p.ID = primitive.NewObjectID()
	p.CustomerEmail = strings.ToLower(strings.TrimSpace(p.CustomerEmail))
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Payment{}, translate(err)
	}
	return p, nil
}

// Delete removes a payment. Only used to undo a half-applied ConfirmPayment.
func (s *PaymentStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// FindByOrder returns the payment recorded for an order
func (s *PaymentStore) FindByOrder(ctx context.Context, orderID primitive.ObjectID) (models.Payment, error) {
	var p models.Payment
	err := s.c.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&p)
	return p, translate(err)
}

type revenueRow struct {
	Total float64 `bson:"total"`
}

// Revenue sums the amount of every payment
func (s *PaymentStore) Revenue(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	rows, err := decodeAll[revenueRow](ctx, cur)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return rows[0].Total, nil
}
