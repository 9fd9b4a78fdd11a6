package handler

import (
	"net/http"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/hft"
)

// StatsSource reports aggregate performance across closed positions,
// satisfied by hft.PositionManager.
type StatsSource interface {
	GetStats() hft.Stats
}

// PerformanceHandler serves recent closed-position history and aggregate
// stats.
type PerformanceHandler struct {
	positions domain.PositionStore
	stats     StatsSource
}

// NewPerformanceHandler creates a PerformanceHandler over the given position
// history store and stats source.
func NewPerformanceHandler(positions domain.PositionStore, stats StatsSource) *PerformanceHandler {
	return &PerformanceHandler{positions: positions, stats: stats}
}

// Performance lists recent closed positions and aggregate PnL stats.
// GET /api/performance
func (h *PerformanceHandler) Performance(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	history, err := h.positions.ListHistory(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list position history")
		return
	}

	resp := map[string]any{"positions": history}
	if h.stats != nil {
		resp["stats"] = h.stats.GetStats()
	}
	writeJSON(w, http.StatusOK, resp)
}
