package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/threadhouse-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/threadhouse-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/threadhouse-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/threadhouse-backend/api/controllers/webhooks"
	"github.com/angelmondragon/threadhouse-backend/api/middleware"
	"github.com/angelmondragon/threadhouse-backend/internal/auth"
	"github.com/angelmondragon/threadhouse-backend/internal/cart"
	"github.com/angelmondragon/threadhouse-backend/internal/customstyles"
	"github.com/angelmondragon/threadhouse-backend/internal/media"
	"github.com/angelmondragon/threadhouse-backend/internal/orders"
	"github.com/angelmondragon/threadhouse-backend/internal/payments"
	products "github.com/angelmondragon/threadhouse-backend/internal/products"
	"github.com/angelmondragon/threadhouse-backend/internal/users"
	stripewebhook "github.com/angelmondragon/threadhouse-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/threadhouse-backend/pkg/auth/session"
	"github.com/angelmondragon/threadhouse-backend/pkg/config"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
	"github.com/angelmondragon/threadhouse-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/threadhouse-backend/pkg/redis"
	"github.com/angelmondragon/threadhouse-backend/pkg/stripe"
)

// Deps carries every collaborator the HTTP surface needs. Optional services
// (payments, media, custom styles, stripe) may be nil; their routes answer 503.
type Deps struct {
	Sessions    session.AccessSessionChecker
	Idempotency pkgredis.IdempotencyStore
	Readiness   []controllers.ReadinessCheck

	Auth         auth.Service
	Users        users.Service
	Products     products.Service
	Media        media.Service
	Cart         cart.Service
	Orders       orders.Service
	Payments     payments.Service
	CustomStyles customstyles.Service

	StripeClient  *stripe.Client
	StripeWebhook *stripewebhook.Service
	WebhookGuard  *pkgredis.Guard

	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}

	authenticated := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	adminOnly := middleware.RequireRole(enums.RoleAdmin, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness...))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Post("/api/webhooks/stripe", stripeWebhookHandler(deps, logg))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.Get("/getuser/{id}", controllers.UserGet(deps.Users, logg))
			r.Put("/updateuser/{id}", controllers.UserUpdate(deps.Users, logg))
			r.Delete("/deleteuser/{id}", controllers.UserDelete(deps.Users, logg))
			r.With(adminOnly).Get("/getusers", controllers.UserList(deps.Users, logg))
		})
	})

	r.Route("/api/product", func(r chi.Router) {
		r.Get("/getproducts", controllers.ProductList(deps.Products, logg))
		r.Get("/getproduct/{id}", controllers.ProductGet(deps.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticated, adminOnly)
			r.Post("/addproduct", controllers.ProductCreate(deps.Products, logg))
			r.Put("/updateproduct/{id}", controllers.ProductUpdate(deps.Products, logg))
			r.Put("/update-product-details/{id}", controllers.ProductUpdateDetails(deps.Products, logg))
			r.Delete("/deleteproduct/{id}", controllers.ProductDelete(deps.Products, logg))
			r.Post("/image-upload", controllers.ProductImageUpload(deps.Media, cfg.Media.MaxProductImages, cfg.Media.MaxUploadBytes(), logg))
		})
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/add-to-cart", cartcontrollers.CartAdd(deps.Cart, logg))
		r.Post("/sync-cart", cartcontrollers.CartSync(deps.Cart, logg))
		r.Get("/cart/{userId}", cartcontrollers.CartView(deps.Cart, logg))
		r.Delete("/cart/{userId}", cartcontrollers.CartClear(deps.Cart, logg))
		r.Delete("/cart/remove-item/{userId}/{productId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
		r.Post("/cart/update-item", cartcontrollers.CartUpdateItem(deps.Cart, logg))
	})

	r.Route("/api/order", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(middleware.Idempotency(deps.Idempotency, logg))
		r.Post("/create-order", ordercontrollers.Create(deps.Orders, logg))
		r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
		r.Get("/order/{id}", ordercontrollers.Detail(deps.Orders, logg))
		r.Post("/create-payment-intent", ordercontrollers.CreatePaymentIntent(deps.Payments, logg))
		r.Post("/verify-payment", ordercontrollers.VerifyPayment(deps.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Patch("/update-status/{id}", ordercontrollers.UpdateStatus(deps.Orders, logg))
			r.Delete("/delete-order/{id}", ordercontrollers.Delete(deps.Orders, logg))
			r.Post("/send-email", ordercontrollers.ResendConfirmation(deps.Orders, logg))
			r.Post("/send-update-order-email", ordercontrollers.ResendStatus(deps.Orders, logg))
		})
	})

	r.Route("/api/custom-style", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/submit", controllers.CustomStyleSubmit(deps.CustomStyles, cfg.Media.MaxUploadBytes(), logg))
		r.Get("/user/{userId}", controllers.CustomStyleListForUser(deps.CustomStyles, logg))

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/all", controllers.CustomStyleList(deps.CustomStyles, logg))
			r.Put("/status/{requestId}", controllers.CustomStyleUpdateStatus(deps.CustomStyles, logg))
			r.Delete("/{requestId}", controllers.CustomStyleDelete(deps.CustomStyles, logg))
		})
	})

	return r
}

// stripeWebhookHandler keeps typed nil pointers out of the handler's interfaces.
func stripeWebhookHandler(deps Deps, logg *logger.Logger) http.HandlerFunc {
	var (
		svc    webhookcontrollers.StripeWebhookService
		client interface{ SigningSecret() string }
		guard  interface {
			CheckAndMark(ctx context.Context, eventID string) (bool, error)
			Delete(ctx context.Context, eventID string) error
		}
	)
	if deps.StripeWebhook != nil {
		svc = deps.StripeWebhook
	}
	if deps.StripeClient != nil {
		client = deps.StripeClient
	}
	if deps.WebhookGuard != nil {
		guard = deps.WebhookGuard
	}
	return webhookcontrollers.StripeWebhook(svc, client, guard, logg)
}
