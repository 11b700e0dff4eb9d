package handlers

import (
	"net/http"
	"strings"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// RouterOptions carries the HTTP settings taken from configuration.
type RouterOptions struct {
	AllowedOrigins []string
	CSRFEnabled    bool
	Limiter        *rate.Limiter
}

// NewRouter wires the middleware chain and API routes.
func NewRouter(uploads *UploadHandler, summaries *SummaryHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(ContextualLoggerMiddleware)
	r.Use(ProxyHeadersMiddleware)
	r.Use(CORSMiddleware(opts.AllowedOrigins))
	if opts.Limiter != nil {
		r.Use(RateLimitMiddleware(opts.Limiter))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSON(w, map[string]string{"message": "Trade summary backend is running"}, http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/csrf", GetCSRFToken)

		r.Group(func(r chi.Router) {
			if opts.CSRFEnabled {
				r.Use(CSRFMiddleware)
			}

			r.Post("/upload", uploads.HandleUpload)
			r.Post("/trades/preview", uploads.HandlePreview)

			r.Get("/summaries", summaries.HandleListSummaries)
			r.Get("/summaries/{id}", summaries.HandleGetSummary)
			r.Get("/summaries/{id}/download", summaries.HandleDownloadBundle)
			r.Get("/summaries/{id}/summary.csv", summaries.HandleSummaryCSV)
			r.Delete("/summaries/{id}", summaries.HandleDeleteSummary)

			r.Get("/files/{name}", summaries.HandleGetFile)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			utils.SendJSONError(w, "not found", http.StatusNotFound)
			return
		}
		http.NotFound(w, r)
	})

	return r
}
