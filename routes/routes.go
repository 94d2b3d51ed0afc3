// routes/routes.go
package routes

import (
	"net/http"
	"shopease/controllers"
	"shopease/middleware"

	"github.com/gorilla/mux"
)

// Controllers groups the handlers the router dispatches to
type Controllers struct {
	Users    *controllers.UserController
	Products *controllers.ProductController
	Cart     *controllers.CartController
	Orders   *controllers.OrderController
	Payments *controllers.PaymentController
	Admin    *controllers.AdminController
}

// Options are the cross-cutting pieces the routes need
type Options struct {
	Verifier middleware.TokenVerifier
	// Idempotency wraps the POST routes that create orders and payments.
	// Nil leaves them unwrapped.
	Idempotency func(http.Handler) http.Handler
}

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, c Controllers, opts Options) {
	auth := middleware.AuthMiddleware(opts.Verifier)
	admin := func(h http.HandlerFunc) http.Handler { return auth(middleware.AdminMiddleware(h)) }
	user := func(h http.HandlerFunc) http.Handler { return auth(h) }
	once := func(h http.Handler) http.Handler {
		if opts.Idempotency == nil {
			return h
		}
		return opts.Idempotency(h)
	}

	router.HandleFunc("/", controllers.Home).Methods(http.MethodGet)

	// Public routes
	router.HandleFunc("/auth/register", c.Users.Register).Methods(http.MethodPost)
	router.HandleFunc("/users", c.Users.Register).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", c.Users.Login).Methods(http.MethodPost)

	// User routes
	router.Handle("/users/role", user(c.Users.GetRole)).Methods(http.MethodGet)

	// Admin routes
	router.Handle("/admin/stats", admin(c.Admin.GetStats)).Methods(http.MethodGet)
	router.Handle("/admin/users", admin(c.Users.ListUsers)).Methods(http.MethodGet)

	// Product routes
	router.HandleFunc("/product", c.Products.GetAllProducts).Methods(http.MethodGet)
	router.HandleFunc("/product/{id}", c.Products.GetProductByID).Methods(http.MethodGet)
	router.HandleFunc("/products", c.Products.GetProducts).Methods(http.MethodGet)
	router.HandleFunc("/popular-products", c.Products.GetPopularProducts).Methods(http.MethodGet)
	router.Handle("/products", admin(c.Products.CreateProduct)).Methods(http.MethodPost)
	router.Handle("/products/{id}", admin(c.Products.UpdateProduct)).Methods(http.MethodPatch)
	router.Handle("/products/{id}", admin(c.Products.DeleteProduct)).Methods(http.MethodDelete)

	// Cart routes
	router.Handle("/cart", user(c.Cart.AddToCart)).Methods(http.MethodPost)
	router.Handle("/cartProduct", user(c.Cart.AddToCart)).Methods(http.MethodPost)
	router.Handle("/cart", user(c.Cart.GetCart)).Methods(http.MethodGet)
	router.Handle("/cart/{id}", user(c.Cart.RemoveFromCart)).Methods(http.MethodDelete)

	// Order routes
	router.Handle("/order", once(middleware.OptionalAuth(opts.Verifier)(http.HandlerFunc(c.Orders.CreateOrder)))).Methods(http.MethodPost)
	router.Handle("/order", user(c.Orders.GetOrdersByEmail)).Methods(http.MethodGet)
	router.Handle("/order/confirm/{id}", admin(c.Orders.ConfirmDelivery)).Methods(http.MethodPatch)
	router.Handle("/order/{orderId}", user(c.Orders.GetOrder)).Methods(http.MethodGet)
	router.Handle("/order/{orderId}", user(c.Orders.CancelOrder)).Methods(http.MethodDelete)
	router.Handle("/orders", admin(c.Orders.GetOrders)).Methods(http.MethodGet)

	// Payment routes
	router.HandleFunc("/create-payment-intent", c.Payments.CreatePaymentIntent).Methods(http.MethodPost)
	router.Handle("/payments", once(http.HandlerFunc(c.Payments.RecordPayment))).Methods(http.MethodPost)
}
