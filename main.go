// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"shopease/config"
	"shopease/controllers"
	"shopease/events"
	"shopease/middleware"
	"shopease/payments"
	"shopease/routes"
	"shopease/services"
	"shopease/store"
	"shopease/utils"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env and the environment
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timeouts := utils.Timeouts{Short: cfg.TimeoutShort, Medium: cfg.TimeoutMedium, Long: cfg.TimeoutLong}.WithDefaults()

	// Connect to MongoDB
	client, err := utils.ConnectDB(ctx, cfg.MongoURI, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()
	db := client.Database(cfg.MongoDatabase)

	indexCtx, cancel := context.WithTimeout(ctx, timeouts.Long)
	err = store.EnsureIndexes(indexCtx, db)
	cancel()
	if err != nil {
		return err
	}

	stores := store.New(db)
	tx := store.NewTxManager(client, log)
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var processor payments.Processor = payments.Disabled{}
	if cfg.StripeSecretKey != "" {
		processor = payments.NewStripe(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, payment intents are disabled")
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	var idempotency func(http.Handler) http.Handler
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		idempotency = middleware.Idempotency(middleware.NewRedisKeyStore(rdb, cfg.IdempotencyTTL), log)
	}

	// Initialize services
	accounts := services.NewAccountService(stores.Users, tokens, log)
	orders := services.NewOrderService(services.OrderDeps{
		Orders:        stores.Orders,
		Products:      stores.Products,
		Payments:      stores.Payments,
		Cart:          stores.Cart,
		Tx:            tx,
		Processor:     processor,
		Mailer:        utils.NewMailer(cfg.MailProvider, cfg.PostmarkAPIToken, cfg.SendGridAPIKey, cfg.EmailSender, log),
		Events:        publisher,
		Metrics:       services.NewMetrics(reg),
		Log:           log,
		Currency:      cfg.PaymentCurrency,
		VerifyIntent:  cfg.VerifyPaymentIntent,
		NotifyTimeout: timeouts.Medium,
	})
	stats := services.NewStatsService(stores.Users, stores.Products, stores.Orders, stores.Payments)

	// Set up the router
	router := mux.NewRouter()
	router.Use(middleware.NewHTTPMetrics(reg).Middleware)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", controllers.Health(controllers.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}), timeouts, log)).Methods(http.MethodGet)

	routes.RegisterRoutes(router, routes.Controllers{
		Users:    controllers.NewUserController(accounts, timeouts, log),
		Products: controllers.NewProductController(stores.Products, timeouts, log),
		Cart:     controllers.NewCartController(stores.Cart, stores.Products, timeouts, log),
		Orders:   controllers.NewOrderController(orders, timeouts, log),
		Payments: controllers.NewPaymentController(orders, timeouts, log),
		Admin:    controllers.NewAdminController(stats, timeouts, log),
	}, routes.Options{Verifier: tokens, Idempotency: idempotency})

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.IdempotencyHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(middleware.RequestLogger(log)(router))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      timeouts.Long + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start the server
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	// Let receipts and events finish before the publisher closes
	orders.Wait()
	return err
}
