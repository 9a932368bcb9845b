package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lovingyourskin/commerce-api/internal/config"
	"github.com/lovingyourskin/commerce-api/internal/handler"
	"github.com/lovingyourskin/commerce-api/internal/middleware"
	"github.com/lovingyourskin/commerce-api/internal/payment"
	"github.com/lovingyourskin/commerce-api/internal/repository"
	"github.com/lovingyourskin/commerce-api/internal/service"
	appvalidator "github.com/lovingyourskin/commerce-api/internal/validator"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	rdb := database.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	app := fiber.New(fiber.Config{
		AppName:      "Loving Your Skin Commerce API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New())

	validate := appvalidator.New()

	stripeClient := payment.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret,
		cfg.Stripe.Currency, cfg.Stripe.ShippingCountries)

	// Repositories
	discountRepo := repository.NewDiscountRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	affiliateRepo := repository.NewAffiliateRepository(pool)
	commissionRepo := repository.NewCommissionRepository(pool)
	clickRepo := repository.NewClickRepository(pool)
	payoutRepo := repository.NewPayoutRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	preorderRepo := repository.NewPreorderRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	brandRepo := repository.NewBrandRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)

	// Services
	discountService := service.NewDiscountService(discountRepo, usageRepo)
	affiliateService := service.NewAffiliateService(affiliateRepo, commissionRepo, clickRepo, discountRepo, pool, rdb)
	payoutService := service.NewPayoutService(payoutRepo, commissionRepo, affiliateRepo, pool)
	checkoutService := service.NewCheckoutService(stripeClient, discountService)
	customerService := service.NewCustomerService(stripeClient)
	catalogService := service.NewCatalogService(brandRepo, productRepo)
	preorderService := service.NewPreorderService(preorderRepo, stripeClient)
	orderService := service.NewOrderService(orderRepo, eventRepo, preorderRepo, productRepo,
		discountService, affiliateService, stripeClient, pool, rdb)
	authService := service.NewAuthService(adminRepo, cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMins)*time.Minute)

	// Handlers
	discountHandler := handler.NewDiscountHandler(discountService, validate)
	affiliateHandler := handler.NewAffiliateHandler(affiliateService, validate)
	payoutHandler := handler.NewPayoutHandler(payoutService, validate)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, validate)
	customerHandler := handler.NewCustomerHandler(customerService, validate)
	webhookHandler := handler.NewWebhookHandler(stripeClient, orderService)
	orderHandler := handler.NewOrderHandler(orderService, validate)
	catalogHandler := handler.NewCatalogHandler(catalogService, validate)
	preorderHandler := handler.NewPreorderHandler(preorderService, validate)
	authHandler := handler.NewAuthHandler(authService, validate)
	healthHandler := handler.NewHealthHandler(pool)

	app.Get("/health", healthHandler.Check)

	// Public storefront routes
	api := app.Group("/api")
	api.Post("/auth/login", authHandler.Login)
	api.Post("/checkout", checkoutHandler.CreateSession)
	api.Post("/customer", customerHandler.Upsert)
	api.Get("/customer", customerHandler.Get)
	api.Post("/discounts/validate", discountHandler.Validate)
	api.Post("/affiliates/track-click", affiliateHandler.TrackClick)
	api.Post("/webhook/stripe", webhookHandler.Handle)
	api.Get("/orders", orderHandler.List)
	api.Get("/orders/session/:sessionId", orderHandler.GetBySession)
	api.Get("/orders/:id", orderHandler.Get)
	api.Get("/brands", catalogHandler.ListBrands)
	api.Get("/brands/:id/volume-discount", catalogHandler.VolumeDiscount)
	api.Get("/brands/:id", catalogHandler.GetBrand)
	api.Get("/products", catalogHandler.ListProducts)
	api.Get("/products/:id", catalogHandler.GetProduct)
	api.Post("/preorders", preorderHandler.Create)
	api.Get("/preorders/:id", preorderHandler.Get)

	// Admin routes behind bearer auth
	admin := api.Group("/admin", middleware.RequireAdmin(authService))
	admin.Post("/discounts", discountHandler.Create)
	admin.Get("/discounts", discountHandler.List)
	admin.Get("/discounts/:id", discountHandler.Get)
	admin.Patch("/discounts/:id", discountHandler.Update)
	admin.Post("/discounts/:id/deactivate", discountHandler.Deactivate)
	admin.Delete("/discounts/:id", discountHandler.Delete)
	admin.Get("/discounts/:code/usage", discountHandler.UsageHistory)
	admin.Post("/affiliates", affiliateHandler.Create)
	admin.Get("/affiliates", affiliateHandler.List)
	admin.Get("/affiliates/:id", affiliateHandler.Get)
	admin.Patch("/affiliates/:id", affiliateHandler.Update)
	admin.Post("/affiliates/:id/approve", affiliateHandler.Approve)
	admin.Post("/affiliates/:id/suspend", affiliateHandler.Suspend)
	admin.Post("/affiliates/:id/terminate", affiliateHandler.Terminate)
	admin.Get("/affiliates/:id/commissions", affiliateHandler.Commissions)
	admin.Get("/affiliates/:id/payouts", payoutHandler.ListByAffiliate)
	admin.Post("/commissions/:id/reverse", affiliateHandler.ReverseCommission)
	admin.Post("/payouts", payoutHandler.Create)
	admin.Get("/payouts/:id", payoutHandler.Get)
	admin.Post("/payouts/:id/process", payoutHandler.MarkProcessing)
	admin.Post("/payouts/:id/complete", payoutHandler.Complete)
	admin.Post("/payouts/:id/fail", payoutHandler.Fail)
	admin.Patch("/orders/:id/status", orderHandler.UpdateStatus)
	admin.Post("/brands", catalogHandler.CreateBrand)
	admin.Post("/products", catalogHandler.CreateProduct)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("closing database connections...")
	pool.Close()
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
