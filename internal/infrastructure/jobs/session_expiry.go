package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"antevus.backend/pkg/logger"
	"antevus.backend/pkg/metrics"
)

// SessionSweeper removes sessions whose inactivity window has elapsed.
type SessionSweeper interface {
	SweepExpired() int
}

const defaultSessionSweepInterval = 60 * time.Second

// SessionExpiryJob periodically sweeps inactive sessions out of the vault.
type SessionExpiryJob struct {
	vault    SessionSweeper
	interval time.Duration
	stop     chan struct{}
}

func NewSessionExpiryJob(v SessionSweeper, interval time.Duration) *SessionExpiryJob {
	if interval <= 0 {
		interval = defaultSessionSweepInterval
	}
	return &SessionExpiryJob{
		vault:    v,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (j *SessionExpiryJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting session expiry job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Session expiry job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Session expiry job stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *SessionExpiryJob) Stop() {
	close(j.stop)
}

func (j *SessionExpiryJob) sweep(ctx context.Context) {
	if removed := j.vault.SweepExpired(); removed > 0 {
		metrics.SessionsExpired.Add(float64(removed))
		logger.Info(ctx, "Removed inactive sessions", zap.Int("count", removed))
	}
}
