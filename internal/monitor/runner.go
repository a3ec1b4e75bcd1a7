package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner triggers an evaluation pass on a fixed interval — the in-binary
// stand-in for an external cron. It does an immediate pass, then runs each
// tick until ctx is cancelled. Passes run to completion; there is no
// per-pass timeout here.
type Runner struct {
	Logger   *zap.Logger
	Pass     *Pass
	Interval time.Duration
}

func (r *Runner) Run(ctx context.Context) {
	if r.Interval <= 0 {
		// disabled; rely on the evaluate endpoint or the one-shot binary
		r.Logger.Info("runner_disabled")
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("runner_stopped")
			return
		case <-t.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	sum, err := r.Pass.Run(ctx, time.Now().UTC())
	if err != nil {
		r.Logger.Warn("pass_error", zap.Error(err))
		return
	}
	r.Logger.Info("pass_done",
		zap.Int("marked_offline", sum.MarkedOffline),
		zap.Int("offline_checked", sum.Offline.Checked),
		zap.Int("offline_notified", sum.Offline.Notified),
		zap.Int("battery_checked", sum.BatteryLow.Checked),
		zap.Int("battery_notified", sum.BatteryLow.Notified),
		zap.Int("online_checked", sum.Online.Checked),
		zap.Int("online_notified", sum.Online.Notified),
	)
}
