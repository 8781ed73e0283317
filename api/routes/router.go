package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tradelink-backend/api/controllers"
	"github.com/angelmondragon/tradelink-backend/api/middleware"
	"github.com/angelmondragon/tradelink-backend/internal/inventory"
	"github.com/angelmondragon/tradelink-backend/internal/invoices"
	"github.com/angelmondragon/tradelink-backend/internal/notifications"
	"github.com/angelmondragon/tradelink-backend/internal/orders"
	"github.com/angelmondragon/tradelink-backend/internal/payments"
	"github.com/angelmondragon/tradelink-backend/internal/reports"
	"github.com/angelmondragon/tradelink-backend/pkg/config"
	"github.com/angelmondragon/tradelink-backend/pkg/enums"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"github.com/angelmondragon/tradelink-backend/pkg/metrics"
	"github.com/angelmondragon/tradelink-backend/pkg/redis"
)

// confirmIntentLimit caps confirmation attempts against one intent per
// window regardless of source address.
const confirmIntentLimit = 10

// Dependencies bundles what the HTTP surface needs.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         *redis.Client
	Metrics       prometheus.Gatherer
	HTTPMetrics   *metrics.HTTPMetrics
	Orders        orders.Service
	Invoices      invoices.Service
	Payments      payments.Service
	Products      inventory.Service
	Reports       reports.Service
	Notifications notifications.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.Recoverer(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	// Nil interfaces keep the middleware disabled in tests without Redis.
	var (
		idempotencyStore redis.IdempotencyStore
		rateStore        middleware.RateLimitStore
	)
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		rateStore = deps.Redis
	}

	confirmPolicy := middleware.RateLimitPolicy{
		Name:     "payments-confirm",
		Window:   cfg.RateLimit.ConfirmWindow,
		PerIP:    cfg.RateLimit.ConfirmLimit,
		Field:    "intent_ref",
		PerField: confirmIntentLimit,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(confirmPolicy, rateStore, logg)).
			Post("/payments/confirm", controllers.ConfirmPayment(deps.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			retailer := middleware.RequireRole(logg, enums.RoleRetailer)
			wholesaler := middleware.RequireRole(logg, enums.RoleWholesaler)

			r.Route("/orders", func(r chi.Router) {
				r.With(retailer).Post("/", controllers.PlaceOrder(deps.Orders, logg))
				r.Get("/", controllers.ListOrders(deps.Orders, logg))
				r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
				r.With(wholesaler).Patch("/{orderId}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
				r.With(wholesaler).Post("/{orderId}/invoice", controllers.IssueInvoice(deps.Invoices, logg))
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", controllers.ListInvoices(deps.Invoices, logg))
				r.Get("/{invoiceId}", controllers.GetInvoice(deps.Invoices, logg))
				r.With(retailer).Post("/{invoiceId}/payment-intent", controllers.CreatePaymentIntent(deps.Payments, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.With(wholesaler).Post("/", controllers.CreateProduct(deps.Products, logg))
				r.Get("/", controllers.ListProducts(deps.Products, logg))
				r.Get("/{productId}", controllers.GetProduct(deps.Products, logg))
				r.With(wholesaler).Post("/{productId}/restock", controllers.RestockProduct(deps.Products, logg))
			})

			r.Route("/reports", func(r chi.Router) {
				r.Use(wholesaler)
				r.Get("/sales", controllers.SalesReport(deps.Reports, logg))
				r.Get("/customers", controllers.CustomersReport(deps.Reports, logg))
				r.Get("/inventory", controllers.InventoryReport(deps.Reports, logg))
				r.Get("/overview", controllers.OverviewReport(deps.Reports, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			})
		})
	})

	return r
}
