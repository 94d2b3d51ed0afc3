package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment statuses
const (
	PaymentUnpaid = "Unpaid"
	PaymentPaid   = "Paid"
)

// Confirmation statuses
const (
	ConfirmationPending   = "pending"
	ConfirmationConfirmed = "confirmed"
)

// Order represents a checkout of a single product
type Order struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	ProductID          primitive.ObjectID `bson:"productId" json:"productId"`
	ProductName        string             `bson:"productName,omitempty" json:"productName,omitempty"`
	Quantity           int                `bson:"quantity" json:"quantity"`
	TotalPrice         float64            `bson:"totalPrice" json:"totalPrice"`
	CustomerEmail      string             `bson:"customer_email" json:"customer_email"`
	CustomerName       string             `bson:"customer_name" json:"customer_name"`
	PaymentStatus      string             `bson:"payment_status" json:"payment_status"`           // "Unpaid" or "Paid"
	ConfirmationStatus string             `bson:"confirmation_status" json:"confirmation_status"` // "pending" or "confirmed"
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
}

// IsPaid reports whether a payment has been recorded for the order
func (o Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}
