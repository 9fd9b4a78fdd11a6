package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// MarketLookup fetches markets for the marketCheck and alert payload
// handlers; satisfied by *feed.Manager.
type MarketLookup interface {
	GetMarket(ctx context.Context, id, venue string) (*domain.Market, error)
}

// ChatSender delivers a message to a user, used by the alert payload handler
// to notify the alert's owner once its condition crosses.
type ChatSender func(ctx context.Context, userID, message string) error

// AgentTurnFunc is an externally-supplied hook invoked by the agentTurn
// payload. A nil AgentTurnFunc makes agentTurn jobs a no-op.
type AgentTurnFunc func(ctx context.Context, message string, options map[string]any) error

// payloadHandlers groups every payload-kind handler the Service dispatches
// to on job firing.
type payloadHandlers struct {
	feeds   MarketLookup
	alerts  domain.AlertStore
	notify  ChatSender
	agent   AgentTurnFunc
	log     *slog.Logger
	onAlert func(ctx context.Context, job domain.CronJob) // internal: enqueue alert(id) jobs for a scan
}

func (h *payloadHandlers) run(ctx context.Context, job domain.CronJob) error {
	switch job.Payload.Kind {
	case domain.PayloadAlertScan:
		return h.alertScan(ctx)
	case domain.PayloadAlert:
		return h.alert(ctx, job.Payload.AlertID)
	case domain.PayloadMarketCheck:
		return h.marketCheck(ctx, job.Payload.MarketCheckMarketID, job.Payload.MarketCheckVenue)
	case domain.PayloadAgentTurn:
		return h.agentTurn(ctx, job.Payload.AgentTurnMessage, job.Payload.AgentTurnOptions)
	case domain.PayloadSystemEvent:
		return h.systemEvent(ctx, job.Payload.SystemEventText)
	default:
		return fmt.Errorf("cron: unknown payload kind %q", job.Payload.Kind)
	}
}

// alertScan fetches every enabled, not-yet-triggered alert and checks each
// one against the current market price.
func (h *payloadHandlers) alertScan(ctx context.Context) error {
	alerts, err := h.alerts.ListEnabledUntriggered(ctx)
	if err != nil {
		return fmt.Errorf("cron: list enabled alerts: %w", err)
	}
	for _, a := range alerts {
		if err := h.checkSingleAlert(ctx, a); err != nil {
			h.log.Warn("cron: alert check failed", slog.String("alert_id", a.ID), slog.Any("error", err))
		}
	}
	return nil
}

// alert loads one alert by id and checks it, for a one-off alert(id) job.
func (h *payloadHandlers) alert(ctx context.Context, alertID string) error {
	a, err := h.alerts.GetByID(ctx, alertID)
	if err != nil {
		return fmt.Errorf("cron: load alert %s: %w", alertID, err)
	}
	return h.checkSingleAlert(ctx, a)
}

func (h *payloadHandlers) checkSingleAlert(ctx context.Context, a domain.Alert) error {
	if !a.Enabled || a.Triggered {
		return nil
	}
	market, err := h.feeds.GetMarket(ctx, a.MarketID, a.Venue)
	if err != nil {
		return fmt.Errorf("cron: fetch market %s/%s: %w", a.Venue, a.MarketID, err)
	}
	if len(market.Outcomes) == 0 {
		return fmt.Errorf("cron: market %s/%s has no outcomes", a.Venue, a.MarketID)
	}
	price := market.Outcomes[0].Price
	if !a.Crossed(price) {
		return nil
	}

	now := time.Now()
	if err := h.alerts.MarkTriggered(ctx, a.ID, now); err != nil {
		return fmt.Errorf("cron: mark alert %s triggered: %w", a.ID, err)
	}
	if h.notify != nil {
		msg := fmt.Sprintf("alert %q crossed: %s is now %.4f", a.Name, a.MarketID, price)
		if err := h.notify(ctx, a.UserID, msg); err != nil {
			h.log.Warn("cron: alert notification failed", slog.String("alert_id", a.ID), slog.Any("error", err))
		}
	}
	return nil
}

// marketCheck fetches a market purely for its cache side effect; it sends
// no message.
func (h *payloadHandlers) marketCheck(ctx context.Context, marketID, venue string) error {
	_, err := h.feeds.GetMarket(ctx, marketID, venue)
	if err != nil {
		return fmt.Errorf("cron: market check %s/%s: %w", venue, marketID, err)
	}
	return nil
}

func (h *payloadHandlers) agentTurn(ctx context.Context, message string, options map[string]any) error {
	if h.agent == nil {
		return nil
	}
	return h.agent(ctx, message, options)
}

func (h *payloadHandlers) systemEvent(ctx context.Context, text string) error {
	h.log.Info("cron: system event", slog.String("text", text))
	return nil
}
