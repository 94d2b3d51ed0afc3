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

// CartStore persists cart lines
type CartStore struct {
	c *mongo.Collection
}

// NewCartStore creates a CartStore over db
func NewCartStore(db *mongo.Database) *CartStore {
	return &CartStore{c: db.Collection(CartCollection)}
}

// Add inserts a cart line
func (s *CartStore) Add(ctx context.Context, item models.CartItem) (models.CartItem, error) {
	item.ID = primitive.NewObjectID()
	item.UserEmail = strings.ToLower(strings.TrimSpace(item.UserEmail))
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, item); err != nil {
		return models.CartItem{}, translate(err)
	}
	return item, nil
}

// Get returns one cart line
func (s *CartStore) Get(ctx context.Context, id primitive.ObjectID) (models.CartItem, error) {
	var item models.CartItem
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	return item, translate(err)
}

// ListByEmail returns a user's cart, oldest line first
func (s *CartStore) ListByEmail(ctx context.Context, email string) ([]models.CartItem, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"userEmail": strings.ToLower(strings.TrimSpace(email))},
		options.Find().SetSort(bson.D{{Key: "addedAt", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.CartItem](ctx, cur)
}

// Delete removes a cart line
func (s *CartStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
