package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"pay-watch.backend/internal/domain/entities"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/metrics"
)

const (
	defaultSweepInterval = 30 * time.Second
	sweepBatchSize       = 100
)

// expirySweepStore is the slice of the request store the sweep needs.
type expirySweepStore interface {
	GetExpiredPending(ctx context.Context, limit int) ([]*entities.PaymentRequest, error)
	ExpireRequests(ctx context.Context, ids []uuid.UUID) error
}

// ExpirySweepJob is the safety net behind the per-request monitors: it
// batch-expires pending requests whose ceiling write was lost (store outage)
// or that were created by a writer without a monitor.
type ExpirySweepJob struct {
	store    expirySweepStore
	interval time.Duration
	stop     chan struct{}
}

func NewExpirySweepJob(store expirySweepStore, interval time.Duration) *ExpirySweepJob {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpirySweepJob{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (j *ExpirySweepJob) Start(ctx context.Context) {
	logger.Info(ctx, "expiry sweep started", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "expiry sweep stopped, context cancelled")
			return
		case <-j.stop:
			logger.Info(ctx, "expiry sweep stopped")
			return
		case <-ticker.C:
			j.sweepExpiredRequests(ctx)
		}
	}
}

func (j *ExpirySweepJob) Stop() {
	close(j.stop)
}

func (j *ExpirySweepJob) sweepExpiredRequests(ctx context.Context) {
	expired, err := j.store.GetExpiredPending(ctx, sweepBatchSize)
	if err != nil {
		logger.Error(ctx, "failed to fetch overdue requests", zap.Error(err))
		return
	}

	if len(expired) == 0 {
		return
	}

	ids := make([]uuid.UUID, 0, len(expired))
	for _, req := range expired {
		ids = append(ids, req.ID)
	}

	if err := j.store.ExpireRequests(ctx, ids); err != nil {
		logger.Error(ctx, "failed to expire overdue requests",
			zap.Int("count", len(ids)), zap.Error(err))
		return
	}

	metrics.RequestsExpiredTotal.WithLabelValues("sweep").Add(float64(len(ids)))
	logger.Info(ctx, "overdue requests expired", zap.Int("count", len(ids)))
}
