package handler

import (
	"net/http"
	"time"

	"github.com/cloddsbot/core/internal/feed"
	"github.com/cloddsbot/core/internal/hft"
)

// FeaturesHandler serves a feature snapshot for one venue market: its
// metadata, current orderbook, and, when an asset symbol is supplied,
// the HFT engine's short-window price statistics for that asset.
type FeaturesHandler struct {
	feeds   *feed.Manager
	buffers *hft.Buffers
}

// NewFeaturesHandler creates a FeaturesHandler over the given feed manager
// and optional price buffers (nil disables spot-move enrichment).
func NewFeaturesHandler(feeds *feed.Manager, buffers *hft.Buffers) *FeaturesHandler {
	return &FeaturesHandler{feeds: feeds, buffers: buffers}
}

// Features reports a market's metadata, current orderbook, and (when
// ?asset= is given and price buffers are wired) short-window spot-move
// statistics.
// GET /api/features/{venue}/{marketId}
func (h *FeaturesHandler) Features(w http.ResponseWriter, r *http.Request) {
	venue := pathParam(r, "venue")
	marketID := pathParam(r, "marketId")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "marketId is required")
		return
	}

	market, err := h.feeds.GetMarket(r.Context(), marketID, venue)
	if err != nil {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}

	resp := map[string]any{"market": market}

	book, err := h.feeds.GetOrderbook(r.Context(), venue, marketID)
	if err == nil {
		resp["orderbook"] = book
	}

	if asset := r.URL.Query().Get("asset"); asset != "" && h.buffers != nil {
		buf := h.buffers.Get(asset)
		price, age, ok := buf.Latest(time.Now())
		stats := map[string]any{
			"movePct10s": buf.MovePct(10 * time.Second),
			"movePct30s": buf.MovePct(30 * time.Second),
			"movePct5m":  buf.MovePct(5 * time.Minute),
			"range30s":   buf.Range(30 * time.Second),
			"mean30s":    buf.Mean(30 * time.Second),
		}
		if ok {
			stats["lastPrice"] = price
			stats["lastAgeSec"] = age.Seconds()
		}
		resp["spot"] = stats
	}

	writeJSON(w, http.StatusOK, resp)
}
