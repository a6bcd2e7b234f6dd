package wire

import (
	"net/http"

	"prepaid-shop/internal/adaptor"
	"prepaid-shop/internal/data/repository"
	"prepaid-shop/internal/usecase"
	"prepaid-shop/pkg/middleware"
	"prepaid-shop/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds the wired router and the pieces main has to manage
type App struct {
	Router  *chi.Mux
	Limiter *middleware.RateLimiter
}

// Wiring builds services, handlers and routes over the repositories
func Wiring(repo *repository.Repository, deps usecase.Dependencies, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, deps, config, logger)
	handler := adaptor.NewHandler(service, logger)

	limiter := middleware.NewRateLimiter(config.RateLimit.RPS, config.RateLimit.Burst, logger)

	router := setupRouter(handler, limiter, config, logger)

	return &App{
		Router:  router,
		Limiter: limiter,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	limiter *middleware.RateLimiter,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins...))

	admin := middleware.Admin(config.Admin.TokenHash, logger)

	wireProduct(r, handler.Product)
	wireBalance(r, handler.Balance)
	wireCharge(r, handler.Charge, admin)
	wirePurchase(r, handler.Purchase, limiter)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
