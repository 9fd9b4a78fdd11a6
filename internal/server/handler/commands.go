package handler

import "net/http"

// Command describes one entry in the gateway's command palette: an
// operation a client can invoke, named by what it does rather than its
// implementation.
type Command struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Method      string `json:"method"`
	Path        string `json:"path"`
}

// CommandsHandler serves the static command palette list the gateway
// exposes over HTTP.
type CommandsHandler struct {
	commands []Command
}

// NewCommandsHandler creates a CommandsHandler over the gateway's fixed set
// of registered operations.
func NewCommandsHandler() *CommandsHandler {
	return &CommandsHandler{commands: []Command{
		{Name: "health", Description: "Report gateway and dependency health", Method: http.MethodGet, Path: "/health"},
		{Name: "metrics", Description: "Report request counters and process memory usage", Method: http.MethodGet, Path: "/metrics"},
		{Name: "backtest", Description: "Replay a strategy against historical ticks", Method: http.MethodPost, Path: "/api/backtest"},
		{Name: "performance", Description: "List recent closed positions and aggregate PnL", Method: http.MethodGet, Path: "/api/performance"},
		{Name: "features", Description: "Fetch a feature snapshot for one venue market", Method: http.MethodGet, Path: "/api/features/{venue}/{marketId}"},
	}}
}

// Commands returns the command palette as JSON.
// GET /api/commands
func (h *CommandsHandler) Commands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commands": h.commands})
}
