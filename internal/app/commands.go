package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/feed"
	"github.com/cloddsbot/core/internal/server/ws"
	"github.com/google/uuid"
)

// buildCommands assembles the /ws command registry: small, independently
// testable closures over the dependencies they need, keyed by the command
// name a client sends.
func buildCommands(feeds *feed.Manager, alerts domain.AlertStore) map[string]ws.CommandFunc {
	return map[string]ws.CommandFunc{
		"getMarket":     cmdGetMarket(feeds),
		"searchMarkets": cmdSearchMarkets(feeds),
		"getOrderbook":  cmdGetOrderbook(feeds),
		"createAlert":   cmdCreateAlert(alerts),
		"listAlerts":    cmdListAlerts(alerts),
		"deleteAlert":   cmdDeleteAlert(alerts),
	}
}

func decode[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 {
		return v, fmt.Errorf("missing args")
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("invalid args: %w", err)
	}
	return v, nil
}

func cmdGetMarket(feeds *feed.Manager) ws.CommandFunc {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		req, err := decode[struct {
			ID    string `json:"id"`
			Venue string `json:"venue"`
		}](args)
		if err != nil {
			return nil, err
		}
		return feeds.GetMarket(ctx, req.ID, req.Venue)
	}
}

func cmdSearchMarkets(feeds *feed.Manager) ws.CommandFunc {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		req, err := decode[struct {
			Query string `json:"query"`
			Venue string `json:"venue"`
		}](args)
		if err != nil {
			return nil, err
		}
		return feeds.SearchMarkets(ctx, req.Query, req.Venue)
	}
}

func cmdGetOrderbook(feeds *feed.Manager) ws.CommandFunc {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		req, err := decode[struct {
			Venue string `json:"venue"`
			ID    string `json:"id"`
		}](args)
		if err != nil {
			return nil, err
		}
		return feeds.GetOrderbook(ctx, req.Venue, req.ID)
	}
}

func cmdCreateAlert(alerts domain.AlertStore) ws.CommandFunc {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		req, err := decode[struct {
			UserID    string  `json:"userId"`
			Name      string  `json:"name"`
			MarketID  string  `json:"marketId"`
			Venue     string  `json:"venue"`
			Kind      string  `json:"kind"`
			Threshold float64 `json:"threshold"`
		}](args)
		if err != nil {
			return nil, err
		}
		if req.UserID == "" || req.MarketID == "" {
			return nil, fmt.Errorf("userId and marketId are required")
		}

		now := time.Now().UTC()
		a := domain.Alert{
			ID:       uuid.NewString(),
			UserID:   req.UserID,
			Kind:     "price",
			Name:     req.Name,
			MarketID: req.MarketID,
			Venue:    req.Venue,
			Condition: domain.AlertCondition{
				Kind:      domain.AlertConditionKind(req.Kind),
				Threshold: req.Threshold,
			},
			Enabled:   true,
			CreatedAt: now,
		}
		if err := alerts.Create(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	}
}

func cmdListAlerts(alerts domain.AlertStore) ws.CommandFunc {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		return alerts.ListEnabledUntriggered(ctx)
	}
}

func cmdDeleteAlert(alerts domain.AlertStore) ws.CommandFunc {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		req, err := decode[struct {
			ID string `json:"id"`
		}](args)
		if err != nil {
			return nil, err
		}
		return nil, alerts.Delete(ctx, req.ID)
	}
}
