package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", app.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetSession)
			r.Post("/image", app.UploadImage)
			r.Get("/image", app.GetImage)
			r.Post("/edits", app.SubmitEdit)
			r.Post("/tab", app.SetActiveTab)
			r.Get("/export", app.ExportSession)
			r.Route("/history", func(r chi.Router) {
				r.Post("/undo", app.Undo)
				r.Post("/redo", app.Redo)
				r.Post("/reset", app.ResetHistory)
				r.Post("/jump", app.JumpHistory)
				r.Delete("/", app.ClearHistory)
			})
		})
	})

	return r
}
