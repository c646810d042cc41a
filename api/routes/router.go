package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pixelgrove/gamecrate-backend/api/controllers"
	"github.com/pixelgrove/gamecrate-backend/api/middleware"
	"github.com/pixelgrove/gamecrate-backend/internal/cart"
	checkoutsvc "github.com/pixelgrove/gamecrate-backend/internal/checkout"
	"github.com/pixelgrove/gamecrate-backend/internal/codes"
	"github.com/pixelgrove/gamecrate-backend/internal/loyalty"
	"github.com/pixelgrove/gamecrate-backend/internal/orders"
	"github.com/pixelgrove/gamecrate-backend/pkg/config"
	"github.com/pixelgrove/gamecrate-backend/pkg/db"
	"github.com/pixelgrove/gamecrate-backend/pkg/logger"
	"github.com/pixelgrove/gamecrate-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	loyaltyService loyalty.Service,
	codesService codes.Service,
	ordersService orders.Service,
) http.Handler {
	var redisP redis.Pinger
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		redisP = redisClient
		idempotencyStore = redisClient
	}

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
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(cartService, logg))
			r.Post("/items", controllers.CartAdd(cartService, logg))
			r.Delete("/items/{productId}", controllers.CartRemove(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/loyalty", func(r chi.Router) {
			r.Get("/balance", controllers.LoyaltyBalance(loyaltyService, logg))
			r.Get("/history", controllers.LoyaltyHistory(loyaltyService, logg))
		})

		r.Route("/codes", func(r chi.Router) {
			r.Get("/", controllers.CodeList(codesService, logg))
			r.Post("/redeem", controllers.CodeRedeem(codesService, logg))
		})
		r.Post("/giftcards/apply", controllers.GiftCardApply(codesService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/deliver", controllers.OrderDeliver(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))
			r.Delete("/{orderId}", controllers.OrderDelete(ordersService, logg))
		})
	})

	return r
}
