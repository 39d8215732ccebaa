package main

import (
	"context"
	"fmt"
	"time"

	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/internal/admin"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/categories"
	"github.com/angelmondragon/storefront-backend/internal/media"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/otp"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/mailer"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/sms"
	"github.com/angelmondragon/storefront-backend/pkg/storage/gcs"
	stripeclient "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// stripe retries deliveries for up to three days.
const stripeWebhookReplayTTL = 72 * time.Hour

type services struct {
	sessions   *session.Manager
	auth       auth.Service
	otp        otp.Service
	users      users.Service
	categories categories.Service
	products   product.Service
	reviews    reviews.Service
	cart       cart.Service
	orders     orders.Service
	admin      admin.Service

	payments           payments.Service
	stripe             *stripeclient.Client
	stripeWebhook      webhookcontrollers.StripeWebhookService
	stripeWebhookGuard *stripewebhook.IdempotencyGuard
}

func buildServices(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*services, error) {
	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)

	sessions, err := session.NewManager(usersRepo, cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	mediaSvc, err := media.NewService(gcsClient, cfg.Media.MaxUploadBytes(), logg)
	if err != nil {
		return nil, fmt.Errorf("media service: %w", err)
	}

	otpSvc, err := otp.NewService(otp.ServiceParams{
		Repo:      otp.NewRepository(conn),
		Users:     usersRepo,
		Transport: otpTransport(ctx, cfg, logg),
		Config:    cfg.OTP,
		Logger:    logg,
	})
	if err != nil {
		return nil, fmt.Errorf("otp service: %w", err)
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessions,
		OTP:            otpSvc,
		Images:         mediaSvc,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		OTPConfig:      cfg.OTP,
		Logger:         logg,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	usersSvc, err := users.NewService(usersRepo, mediaSvc)
	if err != nil {
		return nil, fmt.Errorf("users service: %w", err)
	}

	categoriesSvc, err := categories.NewService(categories.NewRepository(conn), mediaSvc)
	if err != nil {
		return nil, fmt.Errorf("categories service: %w", err)
	}

	productRepo := product.NewRepository(conn)
	productSvc, err := product.NewService(productRepo, categoriesSvc, mediaSvc, logg)
	if err != nil {
		return nil, fmt.Errorf("product service: %w", err)
	}

	reviewsSvc, err := reviews.NewService(reviews.NewRepository(conn), productRepo, dbClient, logg)
	if err != nil {
		return nil, fmt.Errorf("reviews service: %w", err)
	}

	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, productRepo, dbClient)
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(conn),
		Products:  productRepo,
		Carts:     cartRepo,
		Customers: usersRepo,
		Tx:        dbClient,
		Pricing:   cfg.Pricing,
		Orders:    cfg.Orders,
		Logger:    logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	adminSvc, err := admin.NewService(admin.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("admin service: %w", err)
	}

	svcs := &services{
		sessions:   sessions,
		auth:       authSvc,
		otp:        otpSvc,
		users:      usersSvc,
		categories: categoriesSvc,
		products:   productSvc,
		reviews:    reviewsSvc,
		cart:       cartSvc,
		orders:     ordersSvc,
		admin:      adminSvc,
	}

	if !cfg.FeatureFlags.Payments {
		logg.Warn(ctx, "card payments disabled; payment-intent and webhook routes not mounted")
		return svcs, nil
	}

	stripeClient, err := stripeclient.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return nil, fmt.Errorf("stripe client: %w", err)
	}
	paymentsSvc, err := payments.NewService(stripeClient, ordersSvc, cfg.Pricing.Currency, logg)
	if err != nil {
		return nil, fmt.Errorf("payments service: %w", err)
	}
	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{Orders: ordersSvc, Logger: logg})
	if err != nil {
		return nil, fmt.Errorf("stripe webhook service: %w", err)
	}
	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, stripeWebhookReplayTTL, "stripe-webhook")
	if err != nil {
		return nil, fmt.Errorf("stripe webhook guard: %w", err)
	}

	svcs.payments = paymentsSvc
	svcs.stripe = stripeClient
	svcs.stripeWebhook = webhookSvc
	svcs.stripeWebhookGuard = guard
	return svcs, nil
}

func otpTransport(ctx context.Context, cfg *config.Config, logg *logger.Logger) otp.Transport {
	if cfg.OTP.Transport == otp.TransportLog {
		return otp.NewLogTransport(logg)
	}

	var (
		email *mailer.Client
		phone *sms.Client
	)
	if c, err := mailer.NewClient(cfg.Sendgrid, logg); err == nil {
		email = c
	} else {
		logg.Warn(ctx, fmt.Sprintf("sendgrid disabled: %v", err))
	}
	if c, err := sms.NewClient(cfg.Twilio, logg); err == nil {
		phone = c
	} else {
		logg.Warn(ctx, fmt.Sprintf("twilio disabled: %v", err))
	}

	if email == nil && phone == nil && cfg.App.IsDev() {
		logg.Warn(ctx, "no otp provider configured; codes will be logged")
		return otp.NewLogTransport(logg)
	}
	// typed nils would defeat the nil checks in ProviderTransport
	switch {
	case email == nil && phone == nil:
		return otp.NewProviderTransport(nil, nil)
	case email == nil:
		return otp.NewProviderTransport(nil, phone)
	case phone == nil:
		return otp.NewProviderTransport(email, nil)
	}
	return otp.NewProviderTransport(email, phone)
}
