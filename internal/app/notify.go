package app

import (
	"context"

	"github.com/cloddsbot/core/internal/notify"
)

// chatSender adapts notify.Notifier's broadcast-to-all-senders Notify call
// to the narrower per-recipient ChatSender/ChatFunc shapes the cron payload
// handlers and the WebSocket chat relay expect. There is no per-user chat
// channel in this module, so userID is folded into the message rather than
// used for routing.
type chatSender struct {
	notifier *notify.Notifier
}

func newChatSender(notifier *notify.Notifier) *chatSender {
	return &chatSender{notifier: notifier}
}

// SendAlert implements cron.ChatSender.
func (c *chatSender) SendAlert(ctx context.Context, userID, message string) error {
	return c.notifier.Notify(ctx, "alert", "Alert for "+userID, message)
}

// SendChat implements ws.ChatFunc; options are not currently interpreted.
func (c *chatSender) SendChat(ctx context.Context, message string, options map[string]any) error {
	return c.notifier.Notify(ctx, "chat", "Chat message", message)
}
