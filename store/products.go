package store

import (
	"context"
	"regexp"
	"shopease/models"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Catalog paging defaults
const (
	DefaultPageLimit = 12
	MaxPageLimit     = 100
	PopularLimit     = 8
)

// ProductStore persists catalog products
type ProductStore struct {
	c *mongo.Collection
}

// NewProductStore creates a ProductStore over db
func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{c: db.Collection(ProductsCollection)}
}

// Create inserts a product with a zero order count
func (s *ProductStore) Create(ctx context.Context, p models.Product) (models.Product, error) {
	p.ID = primitive.NewObjectID()
	p.OrderCount = 0
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Product{}, translate(err)
	}
	return p, nil
}

// Get returns one product
func (s *ProductStore) Get(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var p models.Product
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	return p, translate(err)
}

// List returns every product
func (s *ProductStore) List(ctx context.Context) ([]models.Product, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Product](ctx, cur)
}

// Page returns one page of products matching f
func (s *ProductStore) Page(ctx context.Context, f models.ProductFilter) (models.ProductPage, error) {
	f = NormalizeFilter(f)
	query := ProductQuery(f)

	opts := options.Find().
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit)).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return models.ProductPage{}, err
	}
	products, err := decodeAll[models.Product](ctx, cur)
	if err != nil {
		return models.ProductPage{}, err
	}

	total, err := s.c.CountDocuments(ctx, query)
	if err != nil {
		return models.ProductPage{}, err
	}

	return models.ProductPage{
		Products:   products,
		Total:      total,
		Page:       f.Page,
		TotalPages: TotalPages(total, f.Limit),
	}, nil
}

// Popular returns the n most ordered products
func (s *ProductStore) Popular(ctx context.Context, n int) ([]models.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "orderCount", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(n))
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Product](ctx, cur)
}

// Update applies the non-nil fields of upd
func (s *ProductStore) Update(ctx context.Context, id primitive.ObjectID, upd models.ProductUpdate) (models.Product, error) {
	set := ProductUpdateDoc(upd)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Product
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	return p, translate(err)
}

// Delete removes a product
func (s *ProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddOrderCount adjusts the product's order counter by delta. The counter
// never goes below zero.
func (s *ProductStore) AddOrderCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["orderCount"] = bson.M{"$gte": -delta}
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"orderCount": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of products
func (s *ProductStore) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// NormalizeFilter applies the paging defaults and bounds
func NormalizeFilter(f models.ProductFilter) models.ProductFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	f.Category = strings.TrimSpace(f.Category)
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// ProductQuery builds the listing filter. Category matches the whole value
// case-insensitively ("all" disables it); search is a case-insensitive
// substring of the name. User text is regex-escaped.
func ProductQuery(f models.ProductFilter) bson.M {
	query := bson.M{}
	if f.Category != "" && !strings.EqualFold(f.Category, "all") {
		query["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Category) + "$", Options: "i"}
	}
	if f.Search != "" {
		query["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	return query
}

// TotalPages is ceil(total/limit)
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// ProductUpdateDoc converts an update into a $set document
func ProductUpdateDoc(upd models.ProductUpdate) bson.M {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}
	if upd.Brand != nil {
		set["brand"] = *upd.Brand
	}
	if upd.Stock != nil {
		set["stock"] = *upd.Stock
	}
	return set
}
