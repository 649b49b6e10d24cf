package di

import (
	"net/http"

	"evotree-backend/interfaces/http/rest"
)

// NewHTTPHandler builds the REST router over the container's services
func NewHTTPHandler(c *Container) http.Handler {
	router := rest.NewRouter(rest.Services{
		Mechanics: c.Mechanics,
		Links:     c.Links,
		Auth:      c.Auth,
		Trees:     c.TreeQuery,
	}, rest.Options{
		Environment:    c.Config.Environment,
		AllowedOrigins: c.Config.CORSAllowedOrigins,
		RateLimiter:    c.RateLimiter,
		Metrics:        c.Metrics,
		ErrorHandler:   c.ErrorHandler,
	}, c.Logger)

	return router.Setup()
}
