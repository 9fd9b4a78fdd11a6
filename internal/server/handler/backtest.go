package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloddsbot/core/internal/hft"
	"github.com/cloddsbot/core/internal/hft/strategy"
)

// BacktestHandler serves the backtest endpoint, replaying a historical tick
// series through a registered strategy.
type BacktestHandler struct {
	registry *strategy.Registry
}

// NewBacktestHandler creates a BacktestHandler over the given strategy
// registry.
func NewBacktestHandler(registry *strategy.Registry) *BacktestHandler {
	return &BacktestHandler{registry: registry}
}

type backtestTickRequest struct {
	AtMs      int64   `json:"atMs"`
	UpPrice   float64 `json:"upPrice"`
	DownPrice float64 `json:"downPrice"`
}

type backtestRequestBody struct {
	Asset        string              `json:"asset"`
	Strategy     string              `json:"strategy"`
	Params       map[string]float64  `json:"params"`
	SizePerTrade float64             `json:"sizePerTrade"`
	Ticks        []backtestTickRequest `json:"ticks"`
}

// Backtest replays the submitted tick series through the requested strategy
// and reports the resulting trades and aggregate stats.
// POST /api/backtest
func (h *BacktestHandler) Backtest(w http.ResponseWriter, r *http.Request) {
	var body backtestRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Asset == "" || body.Strategy == "" {
		writeError(w, http.StatusBadRequest, "asset and strategy are required")
		return
	}
	if len(body.Ticks) == 0 {
		writeError(w, http.StatusBadRequest, "ticks must not be empty")
		return
	}

	ticks := make([]hft.BacktestTick, len(body.Ticks))
	for i, t := range body.Ticks {
		ticks[i] = hft.BacktestTick{
			At:        time.UnixMilli(t.AtMs).UTC(),
			UpPrice:   t.UpPrice,
			DownPrice: t.DownPrice,
		}
	}

	result, err := hft.RunBacktest(hft.BacktestRequest{
		Asset:        body.Asset,
		Strategy:     body.Strategy,
		Params:       strategy.Params(body.Params),
		SizePerTrade: body.SizePerTrade,
		Ticks:        ticks,
	}, h.registry)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades": result.Trades,
		"stats":  result.Stats,
	})
}
