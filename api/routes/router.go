package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/admin"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/categories"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/otp"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/users"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer uses.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

type stripeWebhookClient interface {
	SigningSecret() string
	Live() bool
}

// Deps carries everything NewRouter mounts. Nil services answer 500 on their routes.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             controllers.Pinger
	Redis          RedisStore
	Sessions       session.RevocationChecker
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler

	Auth       auth.Service
	OTP        otp.Service
	Users      users.Service
	Categories categories.Service
	Products   product.Service
	Reviews    reviews.Service
	Cart       cart.Service
	Orders     orders.Service
	Payments   payments.Service
	Admin      admin.Service

	Stripe             stripeWebhookClient
	StripeWebhook      webhookcontrollers.StripeWebhookService
	StripeWebhookGuard *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	limits := cfg.AuthRateLimit
	loginPolicy := middleware.RateLimitPolicy{
		Name:          "login",
		Window:        limits.LoginWindow,
		IPLimit:       limits.LoginIPLimit,
		IdentityLimit: limits.LoginEmailLimit,
		IdentityField: "identifier",
	}
	otpLoginPolicy := loginPolicy
	otpLoginPolicy.Name = "login-otp"
	otpLoginPolicy.IdentityField = "contact"
	registerPolicy := middleware.RateLimitPolicy{
		Name:          "register",
		Window:        limits.RegisterWindow,
		IPLimit:       limits.RegisterIPLimit,
		IdentityLimit: limits.RegisterEmailLimit,
		IdentityField: "email",
	}
	otpPolicy := middleware.RateLimitPolicy{
		Name:          "otp",
		Window:        limits.OTPWindow,
		IPLimit:       limits.OTPIPLimit,
		IdentityLimit: limits.OTPContactLimit,
		IdentityField: "contact",
	}

	throttle := func(policy middleware.RateLimitPolicy) func(http.Handler) http.Handler {
		return middleware.RateLimit(policy, deps.Redis, logg)
	}
	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	idempotent := middleware.Idempotency(deps.Redis, logg)

	authDeps := controllers.AuthDeps{Service: deps.Auth, Cookies: cfg.Cookies, Media: cfg.Media, Logger: logg}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readinessChecks(deps), logg))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(throttle(registerPolicy)).Post("/register", controllers.Register(authDeps))
			r.With(throttle(loginPolicy)).Post("/login", controllers.Login(authDeps))
			r.With(throttle(otpLoginPolicy)).Post("/login/otp", controllers.LoginWithOTP(authDeps))
			r.Post("/refresh", controllers.Refresh(authDeps))
			r.With(throttle(otpPolicy)).Post("/otp/send", controllers.SendOTP(deps.OTP, logg))
			r.With(throttle(otpPolicy)).Post("/otp/verify", controllers.VerifyOTP(deps.OTP, logg))
			r.With(throttle(otpPolicy)).Post("/password/forgot", controllers.ForgotPassword(authDeps))
			r.With(throttle(otpPolicy)).Post("/password/reset", controllers.ResetPassword(authDeps))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", controllers.Logout(authDeps))
				r.Get("/me", controllers.Me(deps.Users, logg))
				r.Patch("/me", controllers.UpdateMe(deps.Users, logg))
				r.Put("/me/password", controllers.ChangePassword(authDeps))
				r.Put("/me/avatar", controllers.UpdateAvatar(deps.Users, cfg.Media, logg))
			})
		})

		r.Route("/product", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Products, logg))
			r.Get("/{productId}/reviews", controllers.ListProductReviews(deps.Reviews, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, middleware.RequireRole(enums.RoleAdmin, logg))
				r.Post("/", controllers.CreateProduct(deps.Products, logg))
				r.Patch("/{productId}", controllers.UpdateProduct(deps.Products, logg))
				r.Delete("/{productId}", controllers.DeleteProduct(deps.Products, logg))
				r.Put("/{productId}/stock", controllers.SetProductStock(deps.Products, logg))
				r.Post("/{productId}/images", controllers.AddProductImages(deps.Products, cfg.Media, logg))
				r.Delete("/{productId}/images/{imageIndex}", controllers.RemoveProductImage(deps.Products, logg))
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(deps.Categories, logg))
			r.Get("/tree", controllers.CategoryTree(deps.Categories, logg))
			r.Get("/{idOrSlug}", controllers.GetCategory(deps.Categories, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, middleware.RequireRole(enums.RoleAdmin, logg))
				r.Post("/", controllers.CreateCategory(deps.Categories, logg))
				r.Patch("/{categoryId}", controllers.UpdateCategory(deps.Categories, logg))
				r.Delete("/{categoryId}", controllers.DeleteCategory(deps.Categories, logg))
				r.Put("/{categoryId}/image", controllers.UpdateCategoryImage(deps.Categories, cfg.Media, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", cartcontrollers.Get(deps.Cart, logg))
			r.Delete("/", cartcontrollers.Clear(deps.Cart, logg))
			r.Post("/items", cartcontrollers.AddItem(deps.Cart, logg))
			r.Patch("/items/{productId}", cartcontrollers.UpdateItem(deps.Cart, logg))
			r.Delete("/items/{productId}", cartcontrollers.RemoveItem(deps.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(requireAuth)
			r.With(idempotent).Post("/", ordercontrollers.Place(deps.Orders, logg))
			r.Get("/mine", ordercontrollers.Mine(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.With(idempotent).Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			if cfg.FeatureFlags.Payments {
				r.With(idempotent).Post("/{orderId}/payment-intent", ordercontrollers.PaymentIntent(deps.Payments, logg))
			}
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", controllers.UpsertReview(deps.Reviews, logg))
			r.Patch("/{reviewId}", controllers.UpdateReview(deps.Reviews, logg))
			r.Delete("/{reviewId}", controllers.DeleteReview(deps.Reviews, logg))
		})

		if cfg.FeatureFlags.Payments {
			r.Post("/payments/webhook", stripeWebhookHandler(deps))
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, middleware.RequireRole(enums.RoleAdmin, logg))
			r.Get("/summary", controllers.AdminSummary(deps.Admin, logg))
			r.Get("/sales/monthly", controllers.AdminMonthlySales(deps.Admin, logg))
			r.Get("/categories/distribution", controllers.AdminCategoryDistribution(deps.Admin, logg))
			r.Get("/orders/status-distribution", controllers.AdminStatusDistribution(deps.Admin, logg))
			r.Get("/orders", ordercontrollers.AdminList(deps.Orders, logg))
			r.With(idempotent).Post("/orders/settle-cod", ordercontrollers.AdminSettleCOD(deps.Orders, logg))
			r.Patch("/orders/{orderId}/status", ordercontrollers.AdminUpdateStatus(deps.Orders, logg))
			r.Post("/orders/{orderId}/paid", ordercontrollers.AdminMarkPaid(deps.Orders, logg))
			r.Post("/orders/{orderId}/delivered", ordercontrollers.AdminMarkDelivered(deps.Orders, logg))
			r.Get("/users", controllers.AdminListUsers(deps.Users, logg))
			r.Patch("/users/{userId}/role", controllers.AdminChangeUserRole(deps.Users, logg))
		})
	})

	return r
}

func readinessChecks(deps Deps) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if deps.DB != nil {
		checks["db"] = deps.DB
	}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	return checks
}

func stripeWebhookHandler(deps Deps) http.HandlerFunc {
	if deps.StripeWebhookGuard == nil {
		return webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.Stripe, nil, deps.Logger)
	}
	return webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.Stripe, deps.StripeWebhookGuard, deps.Logger)
}
