package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lucasrioja/storefront-backend/api/controllers"
	cartcontrollers "github.com/lucasrioja/storefront-backend/api/controllers/cart"
	checkoutcontrollers "github.com/lucasrioja/storefront-backend/api/controllers/checkout"
	"github.com/lucasrioja/storefront-backend/api/middleware"
	cartsvc "github.com/lucasrioja/storefront-backend/internal/cart"
	"github.com/lucasrioja/storefront-backend/internal/reservation"
	"github.com/lucasrioja/storefront-backend/pkg/config"
	"github.com/lucasrioja/storefront-backend/pkg/db"
	"github.com/lucasrioja/storefront-backend/pkg/logger"
	"github.com/lucasrioja/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	cartService cartsvc.Service,
	cartMerger cartsvc.Merger,
	reservationService reservation.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Post("/", cartcontrollers.CartAdd(cartService, logg))
			r.Put("/", cartcontrollers.CartUpdate(cartService, logg))
			r.Delete("/", cartcontrollers.CartClear(cartService, logg))
			r.Delete("/{sku}", cartcontrollers.CartRemove(cartService, logg))
			r.Post("/sync", cartcontrollers.CartSync(cartService, logg))
			r.With(middleware.RequireUser(logg)).Post("/merge", cartcontrollers.CartMerge(cartMerger, logg))
		})

		r.Route("/checkout/reservations", func(r chi.Router) {
			r.Post("/", checkoutcontrollers.ReservationCreate(reservationService, logg))
			r.Delete("/{sku}/{lockID}", checkoutcontrollers.ReservationRelease(reservationService, logg))
			r.Post("/{sku}/{lockID}/commit", checkoutcontrollers.ReservationCommit(reservationService, logg))
		})
	})

	return r
}
