package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rangolink/merchant-bridge/api/controllers"
	"github.com/rangolink/merchant-bridge/api/middleware"
	"github.com/rangolink/merchant-bridge/pkg/config"
	"github.com/rangolink/merchant-bridge/pkg/logger"
)

// Services bundles everything the router hands to its controllers.
type Services struct {
	Tokens    controllers.TokenService
	Polling   controllers.PollService
	Orders    controllers.OrderService
	Merchants controllers.MerchantService
}

// NewRouter wires the bridge's HTTP surface. Tenant-facing routes sit behind
// the inbound API key and require a Tenant-Id header.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.APIKey(cfg.App.APIKey, logg),
			middleware.Tenant(logg),
		)

		r.Post("/token", controllers.IssueToken(svcs.Tokens, logg))

		r.Route("/events", func(r chi.Router) {
			r.Post("/poll", controllers.PollNow(svcs.Polling, logg))
			r.Post("/acknowledgment", controllers.AcknowledgeEvents(svcs.Polling, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(svcs.Orders, logg))
			r.Get("/{orderID}/history", controllers.GetOrderHistory(svcs.Orders, logg))
			r.Get("/upstream/{upstreamID}", controllers.GetOrderDetail(svcs.Orders, logg))
			r.Post("/upstream/{upstreamID}/confirm", controllers.ConfirmOrder(svcs.Orders, logg))
			r.Post("/upstream/{upstreamID}/dispatch", controllers.DispatchOrder(svcs.Orders, logg))
			r.Post("/upstream/{upstreamID}/readyToPickup", controllers.ReadyToPickupOrder(svcs.Orders, logg))
		})

		r.Route("/merchants", func(r chi.Router) {
			r.Get("/", controllers.ListMerchants(svcs.Merchants, logg))
			r.Get("/{merchantID}", controllers.GetMerchant(svcs.Merchants, logg))
			r.Get("/{merchantID}/status", controllers.GetMerchantStatus(svcs.Merchants, logg))
			r.Get("/{merchantID}/deliveryStatus", controllers.GetMerchantDeliveryStatus(svcs.Merchants, logg))
			r.Put("/{merchantID}/status", controllers.UpdateMerchantStatus(svcs.Merchants, logg))
		})
	})

	return r
}
