package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faacuromano/control-gastronomicoV2-sub000/api/controllers"
	ordercontrollers "github.com/faacuromano/control-gastronomicoV2-sub000/api/controllers/orders"
	platformcontrollers "github.com/faacuromano/control-gastronomicoV2-sub000/api/controllers/platforms"
	shiftcontrollers "github.com/faacuromano/control-gastronomicoV2-sub000/api/controllers/shifts"
	webhookcontrollers "github.com/faacuromano/control-gastronomicoV2-sub000/api/controllers/webhooks"
	"github.com/faacuromano/control-gastronomicoV2-sub000/api/middleware"
	ordersvc "github.com/faacuromano/control-gastronomicoV2-sub000/internal/orders"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/platform"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/products"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/queue"
	shiftsvc "github.com/faacuromano/control-gastronomicoV2-sub000/internal/shifts"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/config"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/metrics"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Registry  *platform.Registry
	Publisher *queue.Publisher
	Orders    *ordersvc.Service
	Shifts    *shiftsvc.Service
	Products  products.Repository
	Limiter   middleware.Limiter
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Pingers   map[string]controllers.Pinger
}

// NewRouter assembles the HTTP surface: public webhook intake, health and
// metrics, and the JWT-protected staff API.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(d.Logger),
		middleware.RequestID(d.Logger),
		middleware.Logging(d.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Config))
		r.Get("/ready", controllers.HealthReady(d.Config, d.Logger, d.Pingers))
	})

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Webhook intake authenticates with per-platform HMAC, not JWT.
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/{platform}", webhookcontrollers.Receive(d.Registry, d.Publisher, d.Metrics, d.Logger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(d.Config.JWT, d.Logger))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.OrderRateLimit(d.Limiter, d.Config.RateLimit.OrderLimit, d.Config.RateLimit.OrderWindow, d.Logger)).
				Post("/", ordercontrollers.Create(d.Orders, d.Logger))
			r.Get("/", ordercontrollers.List(d.Orders, d.Logger))
			r.Get("/{orderId}", ordercontrollers.Get(d.Orders, d.Logger))
			r.Post("/{orderId}/transition", ordercontrollers.Transition(d.Orders, d.Logger))
			r.Patch("/{orderId}/items/{itemId}/status", ordercontrollers.UpdateItemStatus(d.Orders, d.Logger))
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Use(middleware.RequireRole(d.Logger, enums.StaffRoleAdmin, enums.StaffRoleManager, enums.StaffRoleCashier))
			r.Post("/open", shiftcontrollers.Open(d.Shifts, d.Logger))
			r.Post("/close", shiftcontrollers.Close(d.Shifts, d.Logger))
		})

		r.Route("/platforms", func(r chi.Router) {
			r.Use(middleware.RequireRole(d.Logger, enums.StaffRoleAdmin, enums.StaffRoleManager))
			r.Post("/{platform}/menu/sync", platformcontrollers.SyncMenu(d.Registry, d.Products, d.Logger))
			r.Patch("/{platform}/availability", platformcontrollers.UpdateAvailability(d.Registry, d.Logger))
		})
	})

	return r
}
