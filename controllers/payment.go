package controllers

import (
	"net/http"
	"shopease/services"
	"shopease/utils"

	"go.uber.org/zap"
)

// PaymentController handles payment intents and confirmations
type PaymentController struct {
	Orders   *services.OrderService
	Timeouts utils.Timeouts
	Log      *zap.Logger
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(orders *services.OrderService, timeouts utils.Timeouts, log *zap.Logger) *PaymentController {
	return &PaymentController{Orders: orders, Timeouts: timeouts.WithDefaults(), Log: log}
}

// CreatePaymentIntent issues a processor intent for an order's exact total
func (pc *PaymentController) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID       string `json:"orderId"`
		AmountInCents int64  `json:"amountInCents"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := utils.WithTimeout(r.Context(), pc.Timeouts.Long, pc.Log, "create_payment_intent")
	defer cancel()
	secret, err := pc.Orders.CreatePaymentIntent(ctx, req.OrderID, req.AmountInCents)
	if err != nil {
		writeError(w, r, pc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": secret})
}

// RecordPayment stores a captured payment and marks its order paid
func (pc *PaymentController) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID       string  `json:"orderId"`
		Amount        float64 `json:"amount"`
		CustomerEmail string  `json:"customer_email"`
		TransactionID string  `json:"transactionId"`
		Method        string  `json:"method"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}

	ctx, cancel := utils.WithTimeout(r.Context(), pc.Timeouts.Long, pc.Log, "record_payment")
	defer cancel()
	payment, err := pc.Orders.ConfirmPayment(ctx, services.ConfirmPaymentInput{
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		CustomerEmail: req.CustomerEmail,
		TransactionID: req.TransactionID,
		Method:        req.Method,
	})
	if err != nil {
		writeError(w, r, pc.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"insertedId": payment.ID})
}
