package rest

import (
	"net/http"
	"slices"
	"time"

	"evotree-backend/interfaces/http/rest/handlers"
	"evotree-backend/interfaces/http/rest/middleware"
	"evotree-backend/pkg/common"
	pkgerrors "evotree-backend/pkg/errors"
	"evotree-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Version is reported by the service info endpoint
const Version = "1.0.0"

const requestTimeout = 30 * time.Second

// Services are the use cases exposed over HTTP
type Services struct {
	Mechanics handlers.MechanicService
	Links     handlers.LinkService
	Auth      interface {
		handlers.AuthService
		middleware.Authenticator
	}
	Trees handlers.TreeQuery
}

// Options configures the router
type Options struct {
	Environment    string
	AllowedOrigins []string
	RateLimiter    middleware.IPLimiter
	Metrics        *observability.Collector
	ErrorHandler   *pkgerrors.ErrorHandler
}

// Router creates and configures the HTTP router
type Router struct {
	services Services
	opts     Options
	logger   *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(services Services, opts Options, logger *zap.Logger) *Router {
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = pkgerrors.NewErrorHandler(logger, false)
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Router{
		services: services,
		opts:     opts,
		logger:   logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()
	errs := rt.opts.ErrorHandler

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errs.Middleware)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.opts.Metrics))
	router.Use(chimiddleware.Timeout(requestTimeout))

	wildcard := slices.Contains(rt.opts.AllowedOrigins, "*")
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "X-Request-ID"},
		ExposedHeaders:   []string{"ETag", "X-Cache", "X-Request-ID"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errs.HandleStatus(w, r, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errs.HandleStatus(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	router.Get("/", rt.serviceInfo)
	router.Get("/health", rt.healthCheck)
	if rt.opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.Metrics.Handler())
	}

	requireUser := middleware.Authenticate(rt.services.Auth, errs)

	authHandler := handlers.NewAuthHandler(rt.services.Auth, errs, rt.logger)
	router.Route("/auth", func(r chi.Router) {
		if rt.opts.RateLimiter != nil {
			r.Use(middleware.RateLimit(rt.opts.RateLimiter, errs, rt.logger))
		}
		r.Post("/register", authHandler.Register)
		r.Post("/verify-email", authHandler.VerifyEmail)
		r.Post("/login", authHandler.Login)
		r.With(requireUser).Get("/me", authHandler.Me)
	})

	mechanicHandler := handlers.NewMechanicHandler(rt.services.Mechanics, rt.services.Trees, errs, rt.logger)
	linkHandler := handlers.NewLinkHandler(rt.services.Links, errs, rt.logger)
	router.Route("/mechanics", func(r chi.Router) {
		r.Get("/", mechanicHandler.ListMechanics)
		r.With(requireUser).Post("/", mechanicHandler.CreateMechanic)

		r.Route("/links", func(r chi.Router) {
			r.Get("/", linkHandler.ListLinks)
			r.With(requireUser).Post("/", linkHandler.CreateLink)
			r.With(requireUser).Delete("/{linkID}", linkHandler.DeleteLink)
		})

		r.Route("/{mechanicID}", func(r chi.Router) {
			r.Get("/", mechanicHandler.GetMechanic)
			r.Get("/tree", mechanicHandler.GetTree)
			r.With(requireUser).Put("/", mechanicHandler.UpdateMechanic)
			r.With(requireUser).Delete("/", mechanicHandler.DeleteMechanic)
		})
	})

	return router
}

// serviceInfo handles GET /
func (rt *Router) serviceInfo(w http.ResponseWriter, req *http.Request) {
	_ = common.RespondJSON(w, http.StatusOK, map[string]string{
		"name":        "Evolution Tree API",
		"version":     Version,
		"environment": rt.opts.Environment,
	})
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
