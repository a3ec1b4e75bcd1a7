package push

import (
	"context"

	"github.com/fleetpulse/fleetpulse/internal/domain"
)

// SkipNoTokens is reported by the gateway when the user has no registered
// receivers at all. The pass treats it as terminal: the ledger is still
// written so the unit stops being recomputed as a candidate forever.
const SkipNoTokens = "no_tokens"

// Message is the type-specific payload handed to the delivery gateway.
type Message struct {
	Type    domain.NotificationType `json:"type"`
	Title   string                  `json:"title"`
	Body    string                  `json:"body"`
	Data    map[string]string       `json:"data,omitempty"`
	Channel string                  `json:"channel,omitempty"`
}

// Receipt reports what the gateway did with a send attempt: how many of the
// user's devices accepted the push, or why delivery was skipped entirely.
type Receipt struct {
	Sent    int    `json:"sent"`
	Skipped string `json:"skipped,omitempty"`
}

// Dispatcher is the consumed notification-delivery boundary. A transport error
// is returned as err; a well-formed gateway answer (including "nobody to
// deliver to") comes back as a Receipt.
type Dispatcher interface {
	Send(ctx context.Context, userID string, msg Message, unitID domain.UnitID) (Receipt, error)
}

// Nop accepts everything without delivering anywhere. Useful in tests and in
// local runs without a configured gateway.
type Nop struct{}

func (Nop) Send(_ context.Context, _ string, _ Message, _ domain.UnitID) (Receipt, error) {
	return Receipt{Sent: 1}, nil
}
