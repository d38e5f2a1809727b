// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/vidsync/internal/api/middleware"
	"github.com/ManuGH/vidsync/internal/auth"
)

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:      true,
		TracingService:     s.opts.TracingService,
		EnableLogging:      !s.opts.DisableAccessLog,
		RateLimitPerMinute: s.opts.RateLimit,
	})

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	// Pulled by the hosting service; authenticated by the per-row token.
	r.Get("/vimeo/callback", s.handleCallback)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.opts.APIToken))
		r.Post("/vimeo/picture", s.handlePicture)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/uploads", s.handleEnqueueUpload)
			r.Post("/sweeps", s.handleEnqueueSweep)
			r.Post("/duplicates", s.handleDuplicate)
			r.Get("/videos", s.handleListVideos)
		})
	})

	return r
}
