package app

import (
	"context"
	"testing"

	"github.com/cloddsbot/core/internal/notify"
)

type fakeSender struct {
	title, message string
	calls          int
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	f.title, f.message = title, message
	f.calls++
	return nil
}

func (f *fakeSender) Name() string { return "fake" }

func TestChatSenderSendAlert(t *testing.T) {
	sender := &fakeSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, discardLogger())
	cs := newChatSender(notifier)

	if err := cs.SendAlert(context.Background(), "user-1", "price crossed threshold"); err != nil {
		t.Fatalf("SendAlert: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("expected sender to be invoked once, got %d", sender.calls)
	}
	if sender.message != "price crossed threshold" {
		t.Fatalf("unexpected message: %q", sender.message)
	}
}

func TestChatSenderSendChat(t *testing.T) {
	sender := &fakeSender{}
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, discardLogger())
	cs := newChatSender(notifier)

	if err := cs.SendChat(context.Background(), "hello", nil); err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	if sender.message != "hello" {
		t.Fatalf("unexpected message: %q", sender.message)
	}
}
