package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	defaultMaxBodyBytes   = 1 << 20
	defaultRequestTimeout = 30 * time.Second
)

func NewRouter(opts Options) (http.Handler, error) {
	api, err := NewAPI(opts)
	if err != nil {
		return nil, err
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logRequests(api.logger), middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.RequestSize(maxBody))
	r.Use(securityHeaders)

	r.Get("/healthz", api.HandleLive)
	r.Get("/readyz", api.HandleReady)
	r.Get("/health/simple", api.HandleHealthSimple)

	r.Get("/", api.HandleHome)
	r.Get("/start_exam/{department}", api.HandleStartForm)
	r.Post("/start_exam/{department}", api.HandleStartExam)
	r.Get("/exam", api.HandleExam)
	r.Post("/exam", api.HandleSubmitAnswer)
	r.Get("/result", api.HandleResult)
	r.Post("/reset", api.HandleReset)

	r.Get("/review", api.HandleReviewList)
	r.Post("/review/{department}", api.HandleStartReview)
	r.Get("/bookmarks", api.HandleBookmarks)
	r.Post("/bookmarks", api.HandleToggleBookmark)
	r.Post("/bookmarks/{department}", api.HandleStartBookmarks)
	r.Get("/history", api.HandleHistory)

	r.Route("/api", func(ar chi.Router) {
		ar.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		ar.Get("/departments", api.HandleDepartments)
		ar.Get("/stats", api.HandleStats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.renderError(w, http.StatusNotFound, "ページが見つかりません。")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.renderError(w, http.StatusMethodNotAllowed, "許可されていない操作です。")
	})

	return r, nil
}
