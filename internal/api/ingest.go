package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

const maxIngestBytes = 32 << 20

type normalizeRequest struct {
	Tool      string          `json:"tool"`
	Target    string          `json:"target"`
	RawResult json.RawMessage `json:"raw_result"`
}

// Normalize converts a raw tool result into findings without touching any job.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	var payload normalizeRequest
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxIngestBytes), &payload); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "invalid json"})
		return
	}
	if strings.TrimSpace(payload.Tool) == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "tool is required"})
		return
	}

	render.JSON(w, r, h.normalizer.NormalizeTarget(payload.Tool, payload.Target, payload.RawResult))
}
