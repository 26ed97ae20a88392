package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	scanerrors "pentellia/scan-core/internal/errors"
	"pentellia/scan-core/internal/jobs"
	"pentellia/scan-core/internal/logging"
	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/security"
)

const maxScanRequestBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type scanResponse struct {
	Success bool         `json:"success"`
	Scan    jobs.JobView `json:"scan"`
}

type scanListResponse struct {
	Success bool             `json:"success"`
	Scans   []*model.ScanJob `json:"scans"`
}

type statsResponse struct {
	Success bool           `json:"success"`
	Stats   model.JobStats `json:"stats"`
}

// CreateScan dispatches a new scan.
func (h *Handler) CreateScan(w http.ResponseWriter, r *http.Request) {
	var req model.ScanRequest
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxScanRequestBytes), &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "invalid json"})
		return
	}

	job, err := h.jobs.Dispatch(r.Context(), ownerFrom(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, scanResponse{Success: true, Scan: jobs.JobView{ScanJob: job}})
}

// GetScan returns a job after syncing it with the executor.
func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	view, err := h.jobs.GetJob(r.Context(), id, ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, scanResponse{Success: true, Scan: view})
}

func (h *Handler) CancelScan(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.CancelJob(r.Context(), id, ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, scanResponse{Success: true, Scan: jobs.JobView{ScanJob: job}})
}

func (h *Handler) DeleteScan(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	if err := h.jobs.DeleteJob(r.Context(), id, ownerFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"success": true, "message": "Scan deleted from history"})
}

// ListScans returns stored jobs without syncing them.
func (h *Handler) ListScans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	list, err := h.jobs.ListJobs(r.Context(), ownerFrom(r), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, scanListResponse{Success: true, Scans: list})
}

func (h *Handler) ScanStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobs.Stats(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, statsResponse{Success: true, Stats: stats})
}

func jobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := security.ValidateJobID(id); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "invalid job_id"})
		return "", false
	}
	return id, true
}

// writeError maps the error taxonomy onto a response. Internal failures are
// logged and reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := scanerrors.HTTPStatus(err)
	msg := err.Error()
	switch {
	case errors.Is(err, scanerrors.ErrNotFound):
		msg = "Scan not found"
	case status >= http.StatusInternalServerError:
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		msg = "Internal Server Error"
		if status == http.StatusBadGateway {
			msg = "Executor unavailable"
		}
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}
