package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amaliareyes/seamline-backend/api/controllers"
	webhookcontrollers "github.com/amaliareyes/seamline-backend/api/controllers/webhooks"
	"github.com/amaliareyes/seamline-backend/api/middleware"
	"github.com/amaliareyes/seamline-backend/internal/catalog"
	checkoutsvc "github.com/amaliareyes/seamline-backend/internal/checkout"
	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/internal/payments"
	"github.com/amaliareyes/seamline-backend/internal/payouts"
	"github.com/amaliareyes/seamline-backend/internal/refunds"
	"github.com/amaliareyes/seamline-backend/internal/users"
	stripewebhook "github.com/amaliareyes/seamline-backend/internal/webhooks/stripe"
	"github.com/amaliareyes/seamline-backend/pkg/config"
	"github.com/amaliareyes/seamline-backend/pkg/db"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
	"github.com/amaliareyes/seamline-backend/pkg/redis"
	"github.com/amaliareyes/seamline-backend/pkg/stripe"
)

type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Stripe      *stripe.Client
	Catalog     *catalog.Repository
	Users       *users.Repository
	Orders      orders.Service
	Payments    payments.Service
	Refunds     refunds.Service
	Payouts     payouts.Service
	Checkout    checkoutsvc.Service
	Webhooks    stripewebhook.Service
	WebhookIdem *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	r.Handle("/metrics", promhttp.Handler())

	webhookPolicy := middleware.NewRateLimitPolicy("webhooks", time.Minute, 600)
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(webhookPolicy, deps.Redis, logg))
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.Webhooks, deps.Stripe, deps.WebhookIdem, logg))
	})

	r.Get("/api/v1/services", controllers.ListServices(deps.Catalog, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.CustomerOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.CustomerOrderDetail(deps.Orders, logg))
			r.Get("/{orderId}/timeline", controllers.CustomerOrderTimeline(deps.Orders, logg))
			r.Post("/{orderId}/pay", controllers.CustomerOrderPay(deps.Payments, logg))
			r.Post("/{orderId}/cancel", controllers.CustomerOrderCancel(deps.Orders, logg))
		})

		r.Route("/runner", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleRunner, logg))
			r.Get("/orders", controllers.RunnerOrders(deps.Orders, logg))
			r.Post("/orders/{orderId}/advance", controllers.AdvanceOrder(deps.Orders, logg))
			r.Get("/payouts", controllers.MyPayouts(deps.Payouts, logg))
		})

		r.Route("/tailor", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleTailor, logg))
			r.Get("/orders", controllers.TailorOrders(deps.Orders, logg))
			r.Post("/orders/{orderId}/advance", controllers.AdvanceOrder(deps.Orders, logg))
			r.Patch("/orders/{orderId}/items/{itemId}", controllers.UpdateOrderItemStatus(deps.Orders, logg))
			r.Get("/payouts", controllers.MyPayouts(deps.Payouts, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireOperator(logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrders(deps.Orders, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(deps.Orders, logg))
				r.Get("/{orderId}/payouts", controllers.AdminOrderPayouts(deps.Payouts, logg))
				r.Post("/{orderId}/advance", controllers.AdvanceOrder(deps.Orders, logg))
				r.Patch("/{orderId}/items/{itemId}", controllers.UpdateOrderItemStatus(deps.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.AdminOrderCancel(deps.Orders, logg))
				r.Post("/{orderId}/assign-runner", controllers.AdminAssignRunner(deps.Orders, logg))
				r.Post("/{orderId}/assign-tailor", controllers.AdminAssignTailor(deps.Orders, logg))
				r.Post("/{orderId}/refund", controllers.AdminOrderRefund(deps.Refunds, logg))
			})
			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", controllers.AdminPayouts(deps.Payouts, logg))
				r.Post("/{payoutId}/mark-paid", controllers.AdminPayoutMarkPaid(deps.Payouts, logg))
			})
			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminUsers(deps.Users, logg))
				r.Get("/{userId}", controllers.AdminUserDetail(deps.Users, logg))
			})
		})
	})

	return r
}
