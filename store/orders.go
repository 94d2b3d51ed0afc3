package store

import (
	"context"
	"shopease/models"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderStore persists orders
type OrderStore struct {
	c *mongo.Collection
}

// NewOrderStore creates an OrderStore over db
func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{c: db.Collection(OrdersCollection)}
}

// Create inserts an order and returns it with its generated ID
func (s *OrderStore) Create(ctx context.Context, o models.Order) (models.Order, error) {
	o.ID = primitive.NewObjectID()
	o.CustomerEmail = strings.ToLower(strings.TrimSpace(o.CustomerEmail))
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, o); err != nil {
		return models.Order{}, translate(err)
	}
	return o, nil
}

// Get returns one order
func (s *OrderStore) Get(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	var o models.Order
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	return o, translate(err)
}

// ListByEmail returns a customer's orders, newest first
func (s *OrderStore) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	return s.find(ctx, bson.M{"customer_email": strings.ToLower(strings.TrimSpace(email))})
}

// List returns every order, newest first
func (s *OrderStore) List(ctx context.Context) ([]models.Order, error) {
	return s.find(ctx, bson.M{})
}

func (s *OrderStore) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Order](ctx, cur)
}

// MarkPaid flips payment_status from Unpaid to Paid. ErrNotFound means no
// unpaid order with that ID exists (missing or already paid).
func (s *OrderStore) MarkPaid(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "payment_status": bson.M{"$ne": models.PaymentPaid}},
		bson.M{"$set": bson.M{"payment_status": models.PaymentPaid}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUnpaid removes an order only while it is unpaid. ErrNotFound means
// it is missing or was paid in the meantime.
func (s *OrderStore) DeleteUnpaid(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "payment_status": bson.M{"$ne": models.PaymentPaid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an order regardless of state. Only used to undo a
// half-applied CreateOrder.
func (s *OrderStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// SetConfirmation sets the delivery confirmation status
func (s *OrderStore) SetConfirmation(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"confirmation_status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of orders
func (s *OrderStore) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// MonthlyCounts groups orders by the calendar month of createdAt
func (s *OrderStore) MonthlyCounts(ctx context.Context) ([]models.MonthlyCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m"},
				{Key: "date", Value: "$createdAt"},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.MonthlyCount](ctx, cur)
}
