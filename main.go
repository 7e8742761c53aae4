// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go-storefront/auth"
	"go-storefront/broadcast"
	"go-storefront/cache"
	"go-storefront/config"
	"go-storefront/controllers"
	"go-storefront/events"
	"go-storefront/logging"
	"go-storefront/middleware"
	"go-storefront/notify"
	"go-storefront/payments"
	"go-storefront/policy"
	"go-storefront/routes"
	"go-storefront/services"
	"go-storefront/store"
	"go-storefront/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := logging.Configure(cfg.LogLevel, cfg.Development())
	if envErr != nil {
		logger.Info().Msg("No .env file found. Proceeding with environment variables.")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to the document store
	db, pushWatcher, release, err := store.Open(ctx, cfg.StoreDriver, cfg.MongoURI, cfg.MongoDatabase, cfg.WatchMode == "changestream")
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer release()

	localCache, err := cache.Open(cfg.CachePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open local cache")
	}
	defer localCache.Close()

	// Initialize EmailService
	emailService, err := utils.NewEmailService(cfg.MailProvider, cfg.EmailSender, cfg.PostmarkToken, cfg.SendGridAPIKey, logging.Component("email"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure email")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitMQ(cfg.RabbitMQURL, cfg.OrderExchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to rabbitmq")
		}
		publisher = rabbit
	}
	defer publisher.Close()

	var bus broadcast.Broadcaster
	if cfg.NATSURL != "" {
		natsBus, err := broadcast.DialNATS(cfg.NATSURL, cfg.SettingsSubject)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsBus.Close()
		bus = natsBus
	}

	notices := notify.NewFeed(100, logging.Component("notify"))

	// Session/identity
	provider := auth.NewLocalProvider(db.Credentials, utils.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour))
	identity := services.NewIdentity(provider, db.Users, policy.New(cfg.AdminEmail), logging.Component("identity"))
	identity.Start()
	defer identity.Close()

	// Order management
	var watcher store.Watcher = store.Ticker{Interval: cfg.PollInterval}
	if pushWatcher != nil {
		watcher = pushWatcher
	}
	orders := services.NewOrders(db.Orders, notices, logging.Component("orders"), services.OrdersOptions{
		Watcher: watcher,
		Events:  publisher,
		Mailer:  emailService,
	})
	if err := orders.FetchOrders(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial order fetch failed")
	}
	unsubscribe, err := orders.SubscribeToOrders()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to subscribe to orders")
	}
	defer unsubscribe()

	// Site configuration
	siteConfig := services.NewSiteConfig(db.SiteDocs, db.NavbarDocs, localCache, bus, notices, logging.Component("settings"))
	if err := siteConfig.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to subscribe to settings broadcasts")
	}
	defer siteConfig.Close()
	siteConfig.Refresh(ctx)

	// Cart and checkout
	carts := services.NewCarts(db.Products)
	outbox := services.NewOutbox(localCache, db.Orders, logging.Component("outbox"))
	checkout := services.NewCheckout(db.Orders, db.Products, carts, outbox, notices, logging.Component("checkout"), services.CheckoutOptions{
		Events: publisher,
		Mailer: emailService,
	})
	outbox.Start(cfg.OutboxFlushInterval)
	defer outbox.Stop()

	// Set up the router
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(logging.Component("http")))
	routes.RegisterRoutes(router, identity, routes.Controllers{
		User:     controllers.NewUserController(identity, db.Users, carts, siteConfig),
		Product:  controllers.NewProductController(db.Products, db.Categories),
		Cart:     controllers.NewCartController(carts),
		Checkout: controllers.NewCheckoutController(checkout),
		Order:    controllers.NewOrderController(orders),
		Settings: controllers.NewSettingsController(siteConfig, payments.NewOnboarding(cfg.PaymentOnboardingURL), notices),
		Content:  controllers.NewContentController(db),
	})

	// Start the server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
