package controllers

import (
	"context"
	"net/http"
	"shopease/models"
	"shopease/services"
	"shopease/utils"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CartStore is the cart persistence used by CartController
type CartStore interface {
	Add(ctx context.Context, item models.CartItem) (models.CartItem, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.CartItem, error)
	ListByEmail(ctx context.Context, email string) ([]models.CartItem, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProductLookup loads a single product
type ProductLookup interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Product, error)
}

// CartController handles cart-related requests
type CartController struct {
	Cart     CartStore
	Products ProductLookup
	Timeouts utils.Timeouts
	Log      *zap.Logger
}

// NewCartController creates a new CartController
func NewCartController(cart CartStore, products ProductLookup, timeouts utils.Timeouts, log *zap.Logger) *CartController {
	return &CartController{Cart: cart, Products: products, Timeouts: timeouts.WithDefaults(), Log: log}
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UserEmail string `json:"userEmail"`
}

// AddToCart adds a product line to the caller's cart
func (cc *CartController) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}
	pid, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		writeError(w, r, cc.Log, services.ErrInvalidID)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		writeMessage(w, http.StatusBadRequest, "Quantity must be positive")
		return
	}

	// The cart belongs to the caller unless an admin names another user
	who := actor(r)
	email := who.Email
	if req.UserEmail != "" {
		if !who.CanAccess(req.UserEmail) {
			writeError(w, r, cc.Log, services.ErrForbidden)
			return
		}
		email = req.UserEmail
	}

	ctx, cancel := utils.WithTimeout(r.Context(), cc.Timeouts.Short, cc.Log, "add_to_cart")
	defer cancel()
	product, err := cc.Products.Get(ctx, pid)
	if err != nil {
		writeError(w, r, cc.Log, err)
		return
	}

	item, err := cc.Cart.Add(ctx, models.CartItem{
		UserEmail: strings.ToLower(strings.TrimSpace(email)),
		ProductID: pid,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Quantity:  req.Quantity,
		AddedAt:   time.Now().UTC(),
	})
	if err != nil {
		writeError(w, r, cc.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"insertedId": item.ID, "item": item})
}

// GetCart lists the cart of ?email=
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		email = actor(r).Email
	}
	if !actor(r).CanAccess(email) {
		writeError(w, r, cc.Log, services.ErrForbidden)
		return
	}

	ctx, cancel := utils.WithTimeout(r.Context(), cc.Timeouts.Medium, cc.Log, "get_cart")
	defer cancel()
	items, err := cc.Cart.ListByEmail(ctx, email)
	if err != nil {
		writeError(w, r, cc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// RemoveFromCart deletes one cart line owned by the caller
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := utils.WithTimeout(r.Context(), cc.Timeouts.Short, cc.Log, "remove_from_cart")
	defer cancel()
	item, err := cc.Cart.Get(ctx, id)
	if err != nil {
		writeError(w, r, cc.Log, err)
		return
	}
	if !actor(r).CanAccess(item.UserEmail) {
		writeError(w, r, cc.Log, services.ErrForbidden)
		return
	}
	if err := cc.Cart.Delete(ctx, id); err != nil {
		writeError(w, r, cc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deletedCount": 1})
}
