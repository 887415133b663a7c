package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// HandleDevSeed inserts the deterministic demo dataset. Mounted only
// when dev events are enabled; otherwise the route does not exist.
func (h *Handlers) HandleDevSeed(w http.ResponseWriter, r *http.Request) {
	res, err := h.seeder.Seed(r.Context())
	if err != nil {
		h.logger.Error("seed failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Seed failure")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleDevEmit inserts variant synthetic events on demand.
func (h *Handlers) HandleDevEmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Variant string `json:"variant"`
		Count   int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	res, err := h.seeder.Emit(r.Context(), req.Variant, req.Count)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
