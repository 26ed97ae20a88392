// Package api is the HTTP surface of the scan core.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pentellia/scan-core/internal/jobs"
	"pentellia/scan-core/internal/logging"
	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/normalize"
)

const (
	ownerHeader     = "X-Owner-ID"
	requestIDHeader = "X-Request-ID"
)

// JobService is the job boundary the handlers drive.
type JobService interface {
	Dispatch(ctx context.Context, ownerID string, req model.ScanRequest) (*model.ScanJob, error)
	GetJob(ctx context.Context, jobID, ownerID string) (jobs.JobView, error)
	CancelJob(ctx context.Context, jobID, ownerID string) (*model.ScanJob, error)
	DeleteJob(ctx context.Context, jobID, ownerID string) error
	ListJobs(ctx context.Context, ownerID string, limit int) ([]*model.ScanJob, error)
	Stats(ctx context.Context, ownerID string) (model.JobStats, error)
}

// Handler holds the dependencies shared by all routes.
type Handler struct {
	jobs       JobService
	normalizer *normalize.Normalizer
}

func NewHandler(svc JobService, norm *normalize.Normalizer) *Handler {
	if norm == nil {
		norm = normalize.New(nil)
	}
	return &Handler{jobs: svc, normalizer: norm}
}

// NewRouter mounts every route.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/normalize", h.Normalize)

		r.Route("/scans", func(r chi.Router) {
			r.Use(requireOwner)
			r.Get("/", h.ListScans)
			r.Post("/", h.CreateScan)
			r.Get("/stats", h.ScanStats)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetScan)
				r.Delete("/", h.DeleteScan)
				r.Post("/cancel", h.CancelScan)
			})
		})
	})

	return r
}

type ownerKey struct{}

// requireOwner rejects requests that carry no owner identity.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(ownerHeader)
		if owner == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, errorResponse{Error: "Unauthorized"})
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerFrom(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey{}).(string)
	return owner
}

// requestID attaches a request-scoped logger and echoes the id back.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := logging.WithRequestID(r.Context(), r.Header.Get(requestIDHeader))
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		logging.FromContext(r.Context()).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
