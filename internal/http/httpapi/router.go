package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"xstream/internal/http/handlers"
	"xstream/internal/infra"
	"xstream/internal/middleware"
)

// Options configure the cross-cutting middleware.
type Options struct {
	Logger        *infra.Logger
	DefaultLocale string
	CountryLookup middleware.CountryLookup
	// RateLimitPerMinute bounds generation calls per client. Zero disables it.
	RateLimitPerMinute int
	CORSOrigins        []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Logger(*infra.LoggerOrDiscard(opts.Logger)),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/controls", app.Controls)

	generation := middleware.RateLimit(opts.RateLimitPerMinute, time.Minute)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", app.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetSession)
			r.Delete("/", app.CloseSession)
			r.Post("/inputs/{slot}", app.SetInput)
			r.Delete("/inputs/{slot}", app.ClearInput)
			r.Put("/controls", app.SetControl)
			r.Put("/text", app.SetText)
			r.Post("/filter", app.Filter)
			r.Post("/undo", app.Undo)
			r.Post("/redo", app.Redo)
			r.Post("/reset", app.Reset)
			r.Post("/dismiss", app.Dismiss)
			r.Post("/save", app.Save)
			r.Post("/credential", app.SelectCredential)
			r.Group(func(r chi.Router) {
				r.Use(generation)
				r.Post("/draft", app.Draft)
				r.Post("/generate", app.Generate)
				r.Post("/refine", app.Refine)
			})
		})
	})

	r.Route("/v1/library", func(r chi.Router) {
		r.Get("/", app.ListLibrary)
		r.Get("/export", app.ExportLibrary)
		r.Post("/{id}/handoff", app.Handoff)
	})

	r.Get("/v1/blobs/{id}", app.Blob)

	return r
}
