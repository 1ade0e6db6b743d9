package notifier

import (
	"context"

	"go.uber.org/zap"
)

// Notifier delivers a text message to the operator.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// CommandHandler is called when a user command is received and returns the reply.
type CommandHandler func(command string) string

// NoopNotifier drops messages. Used when Telegram is not configured.
type NoopNotifier struct {
	Log *zap.Logger
}

func (n NoopNotifier) Send(_ context.Context, text string) error {
	if n.Log != nil {
		n.Log.Debug("notification dropped", zap.Int("len", len(text)))
	}
	return nil
}
