package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cloddsbot/core/internal/config"
	"github.com/cloddsbot/core/internal/crypto"
	"github.com/cloddsbot/core/internal/domain"
	"github.com/cloddsbot/core/internal/notify"
	"github.com/cloddsbot/core/internal/usersocket"
)

// operatorUserID identifies the trading account the HFT engine executes
// under when auto-execution is live, as distinct from the per-human accounts
// the gateway manages credentials for under their own user IDs.
const operatorUserID = "operator"

// newUserSocketManager builds the manager that maintains authenticated
// user-channel sockets, logging and forwarding every fill and order event it
// normalizes.
func newUserSocketManager(wsURLs map[string]string, notifier *notify.Notifier, log *slog.Logger) *usersocket.Manager {
	log = log.With(slog.String("component", "usersocket"))

	onFill := func(f domain.Fill) {
		log.Info("fill",
			slog.String("order_id", f.OrderID),
			slog.String("market_id", f.MarketID),
			slog.Float64("price", f.Price),
			slog.Float64("size", f.Size),
			slog.String("status", string(f.Status)),
		)
		if notifier != nil {
			msg := fmt.Sprintf("fill %s on %s: %.4f @ %.4f (%s)", f.OrderID, f.MarketID, f.Size, f.Price, f.Status)
			if err := notifier.Notify(context.Background(), "fill", "Fill", msg); err != nil {
				log.Warn("notify fill failed", slog.Any("error", err))
			}
		}
	}

	onOrder := func(oe domain.OrderEvent) {
		log.Info("order event",
			slog.String("order_id", oe.OrderID),
			slog.String("type", string(oe.Type)),
			slog.Float64("size_matched", oe.SizeMatched),
		)
	}

	onError := func(err error) {
		log.Error("terminal error", slog.Any("error", err))
		if notifier != nil {
			_ = notifier.Notify(context.Background(), "alert", "User socket disconnected", err.Error())
		}
	}

	return usersocket.NewManager(wsURLs, onFill, onOrder, onError, log)
}

// connectOperatorFeed decrypts the operator's stored credentials for venue
// and opens its user-channel socket, so fills from live auto-execution
// surface over the same normalized path human accounts use.
func connectOperatorFeed(ctx context.Context, mgr *usersocket.Manager, creds domain.CredentialStore, credentialKey, venue string) error {
	stored, err := creds.Get(ctx, operatorUserID, venue)
	if err != nil {
		return fmt.Errorf("app: operator credentials: %w", err)
	}
	plaintext, err := crypto.DecryptCredential(stored.Ciphertext, credentialKey)
	if err != nil {
		return fmt.Errorf("app: decrypt operator credentials: %w", err)
	}
	var uc domain.UserCredentials
	if err := json.Unmarshal([]byte(plaintext), &uc); err != nil {
		return fmt.Errorf("app: unmarshal operator credentials: %w", err)
	}
	if _, err := mgr.GetOrCreate(ctx, venue, operatorUserID, uc); err != nil {
		return fmt.Errorf("app: connect operator feed: %w", err)
	}
	return nil
}

// feedWSURLs collects the user-channel WebSocket URL for every enabled feed,
// keyed by venue name.
func feedWSURLs(feeds map[string]config.FeedConfig) map[string]string {
	out := make(map[string]string, len(feeds))
	for venue, fc := range feeds {
		if fc.Enabled && fc.WsURL != "" {
			out[venue] = fc.WsURL
		}
	}
	return out
}
