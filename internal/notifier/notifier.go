// Package notifier is the outbound port to the chat presentation layer.
// The core only emits plain data; rendering user-facing messages is the
// bot's job.
package notifier

import (
	"github.com/rs/zerolog"

	"github.com/akozyrev/marketlink/internal/types"
)

// Notifier receives progress callbacks from the linking and ordering flows.
type Notifier interface {
	LoginStepChanged(userID string, m types.Marketplace, step types.LoginStep)
	LoginFailed(userID string, m types.Marketplace, reason types.FailReason)
	OrderCompleted(userID string, m types.Marketplace, marketplaceOrderID string)
}

// LogNotifier logs every callback. Used standalone in the daemon until a
// chat frontend is wired in, and as a template for real implementations.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) LoginStepChanged(userID string, m types.Marketplace, step types.LoginStep) {
	n.log.Info().Str("user_id", userID).Str("marketplace", m.String()).
		Str("step", string(step)).Msg("login step changed")
}

func (n *LogNotifier) LoginFailed(userID string, m types.Marketplace, reason types.FailReason) {
	n.log.Warn().Str("user_id", userID).Str("marketplace", m.String()).
		Str("reason", string(reason)).Msg("login failed")
}

func (n *LogNotifier) OrderCompleted(userID string, m types.Marketplace, marketplaceOrderID string) {
	n.log.Info().Str("user_id", userID).Str("marketplace", m.String()).
		Str("marketplace_order_id", marketplaceOrderID).Msg("order completed")
}
