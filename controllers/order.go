package controllers

import (
	"net/http"
	"shopease/middleware"
	"shopease/services"
	"shopease/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// OrderController handles order-related requests
type OrderController struct {
	Orders   *services.OrderService
	Timeouts utils.Timeouts
	Log      *zap.Logger
}

// NewOrderController creates a new OrderController
func NewOrderController(orders *services.OrderService, timeouts utils.Timeouts, log *zap.Logger) *OrderController {
	return &OrderController{Orders: orders, Timeouts: timeouts.WithDefaults(), Log: log}
}

type createOrderRequest struct {
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
	CartItemID    string `json:"cartItemId"`
}

// CreateOrder places an order for one product. The price comes from the
// catalog; a signed-in caller always orders for themselves.
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		req.CustomerEmail = claims.Email
	}

	ctx, cancel := utils.WithTimeout(r.Context(), oc.Timeouts.Long, oc.Log, "create_order")
	defer cancel()
	order, err := oc.Orders.CreateOrder(ctx, services.CreateOrderInput{
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		CartItemID:    req.CartItemID,
	})
	if err != nil {
		writeError(w, r, oc.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"insertedId": order.ID, "order": order})
}

// GetOrder returns one order to its owner or an admin
func (oc *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := utils.WithTimeout(r.Context(), oc.Timeouts.Short, oc.Log, "get_order")
	defer cancel()
	order, err := oc.Orders.GetOrder(ctx, mux.Vars(r)["orderId"], actor(r))
	if err != nil {
		writeError(w, r, oc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// GetOrdersByEmail lists the orders of ?email=
func (oc *OrderController) GetOrdersByEmail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := utils.WithTimeout(r.Context(), oc.Timeouts.Medium, oc.Log, "list_orders_by_email")
	defer cancel()
	orders, err := oc.Orders.ListOrdersByEmail(ctx, r.URL.Query().Get("email"), actor(r))
	if err != nil {
		writeError(w, r, oc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrders lists every order (Admin only)
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := utils.WithTimeout(r.Context(), oc.Timeouts.Medium, oc.Log, "list_orders")
	defer cancel()
	orders, err := oc.Orders.ListOrders(ctx)
	if err != nil {
		writeError(w, r, oc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// CancelOrder deletes an unpaid order
func (oc *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := utils.WithTimeout(r.Context(), oc.Timeouts.Long, oc.Log, "cancel_order")
	defer cancel()
	if err := oc.Orders.CancelOrder(ctx, mux.Vars(r)["orderId"], actor(r)); err != nil {
		writeError(w, r, oc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deletedCount": 1})
}

// ConfirmDelivery marks an order as delivered (Admin only)
func (oc *OrderController) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := utils.WithTimeout(r.Context(), oc.Timeouts.Short, oc.Log, "confirm_delivery")
	defer cancel()
	if err := oc.Orders.ConfirmDelivery(ctx, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, oc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"modifiedCount": 1})
}
