package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product represents a catalog entry
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	Category    string             `bson:"category" json:"category"`
	Price       float64            `bson:"price" json:"price"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	Brand       string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Stock       int                `bson:"stock" json:"stock"`
	OrderCount  int                `bson:"orderCount" json:"orderCount"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// ProductUpdate carries the fields an admin may change. Nil fields are left untouched.
type ProductUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Description *string  `json:"description,omitempty"`
	Image       *string  `json:"image,omitempty"`
	Brand       *string  `json:"brand,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
}

// ProductFilter narrows a catalog listing
type ProductFilter struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

// ProductPage is one page of a filtered catalog listing
type ProductPage struct {
	Products   []Product `json:"products"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
}
