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

// UserStore persists users
type UserStore struct {
	c *mongo.Collection
}

// NewUserStore creates a UserStore over db
func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{c: db.Collection(UsersCollection)}
}

// Create inserts a user and returns it with its generated ID.
// A second user with the same email fails with ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		return models.User{}, translate(err)
	}
	return u, nil
}

// FindByEmail looks a user up by (case-insensitive) email
func (s *UserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u)
	return u, translate(err)
}

// List returns all users, newest first
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[models.User](ctx, cur)
}

// Count returns the number of users
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
