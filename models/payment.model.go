package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment records a captured payment for an order. Payments are append-only.
type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	OrderID       primitive.ObjectID `bson:"orderId" json:"orderId"`
	Amount        float64            `bson:"amount" json:"amount"`
	CustomerEmail string             `bson:"customer_email" json:"customer_email"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	Method        string             `bson:"method" json:"method"` // e.g. "card"
	PaidAt        time.Time          `bson:"paid_at" json:"paid_at"`
}
