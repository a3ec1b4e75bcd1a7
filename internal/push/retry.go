package push

import (
	"context"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/domain"
)

// Retry wraps a Dispatcher with bounded in-call retries on transport errors.
// A gateway answer — even Sent: 0 or Skipped — is final and never retried;
// the evaluation pass's recomputation handles anything beyond that.
type Retry struct {
	Inner    Dispatcher
	Attempts int
	Backoff  time.Duration
}

func (r *Retry) Send(ctx context.Context, userID string, msg Message, unitID domain.UnitID) (Receipt, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var (
		rcpt Receipt
		err  error
	)
	for i := 0; i < attempts; i++ {
		rcpt, err = r.Inner.Send(ctx, userID, msg, unitID)
		if err == nil {
			return rcpt, nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return Receipt{}, ctx.Err()
			case <-time.After(r.Backoff):
			}
		}
	}
	return rcpt, err
}
