package rest

import (
	"fmt"
	"net/http"

	"github.com/devcamper/catalog/internal/aggregate"
)

// BackfillResponse lists the recompute of every parent.
type BackfillResponse struct {
	Success bool               `json:"success"`
	Count   int                `json:"count"`
	Data    []aggregate.Result `json:"data"`
}

func (h *Handler) handleListAggregates(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if h.aggregates != nil {
		names = h.aggregates.Names()
	}
	writeData(w, http.StatusOK, names)
}

// handleRecompute recomputes one parent synchronously.
func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	if h.aggregates == nil {
		writeServiceError(w, r, fmt.Errorf("%w: %s", aggregate.ErrUnknownAggregate, r.PathValue("name")))
		return
	}
	parentID, ok := pathID(w, r, "parentId")
	if !ok {
		return
	}
	res, err := h.aggregates.Recompute(r.Context(), r.PathValue("name"), parentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (h *Handler) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if h.aggregates == nil {
		writeServiceError(w, r, fmt.Errorf("%w: %s", aggregate.ErrUnknownAggregate, r.PathValue("name")))
		return
	}
	results, err := h.aggregates.Backfill(r.Context(), r.PathValue("name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BackfillResponse{Success: true, Count: len(results), Data: results})
}
