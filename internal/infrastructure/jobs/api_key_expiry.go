package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"antevus.backend/pkg/logger"
	"antevus.backend/pkg/metrics"
)

// ExpiredKeySweeper removes credentials past their expiry time.
type ExpiredKeySweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// ApiKeyExpiryJob periodically removes credentials past their expiry time.
type ApiKeyExpiryJob struct {
	usecase  ExpiredKeySweeper
	interval time.Duration
	stop     chan struct{}
}

func NewApiKeyExpiryJob(usecase ExpiredKeySweeper, interval time.Duration) *ApiKeyExpiryJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ApiKeyExpiryJob{
		usecase:  usecase,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (j *ApiKeyExpiryJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting API key expiry job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "API key expiry job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "API key expiry job stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *ApiKeyExpiryJob) Stop() {
	close(j.stop)
}

func (j *ApiKeyExpiryJob) sweep(ctx context.Context) {
	deleted, err := j.usecase.SweepExpired(ctx)
	if err != nil {
		logger.Error(ctx, "Error sweeping expired API keys", zap.Error(err))
		return
	}
	if deleted > 0 {
		metrics.KeysExpired.Add(float64(deleted))
		logger.Info(ctx, "Removed expired API keys", zap.Int64("count", deleted))
	}
}
