package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/infrastructure/verification"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/metrics"
)

var timeNow = time.Now

// RequestStore is the slice of the request lifecycle the monitor needs.
// All transitions are conditional: the bool reports whether this caller
// moved the row, so racing finishers resolve to exactly one winner.
type RequestStore interface {
	GetRequest(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error)
	CompleteRequest(ctx context.Context, id uuid.UUID, txHash string) (bool, error)
	ExpireRequest(ctx context.Context, id uuid.UUID) (bool, error)
	TouchLastChecked(ctx context.Context, id uuid.UUID, at time.Time) error
}

// TransactionLedger records verified payments. Must be idempotent on
// (chain, txHash) so the monitor can safely retry.
type TransactionLedger interface {
	RecordVerified(ctx context.Context, req *entities.PaymentRequest, res *verification.Result) error
}

// VerifierSource resolves the verifier for a request's chain.
type VerifierSource interface {
	ForChain(chain string) (verification.Verifier, error)
}

// MonitorConfig tunes the polling behaviour.
type MonitorConfig struct {
	PollInterval      time.Duration
	VerifyTimeout     time.Duration
	ErrorLogThreshold int
}

const (
	defaultPollInterval      = 15 * time.Second
	defaultVerifyTimeout     = 5 * time.Second
	defaultErrorLogThreshold = 5

	// criticalWriteTimeout bounds the completion and expiry writes that run
	// on their own context, detached from the task's.
	criticalWriteTimeout = 5 * time.Second
)

// monitorTask is one pending request under watch. pendingResult and the
// counters are touched only by the task's own goroutine.
type monitorTask struct {
	requestID uuid.UUID
	chain     string
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	pendingResult     *verification.Result
	wonCompletion     bool
	consecutiveErrors int
}

// PaymentMonitor runs one polling goroutine per pending payment request.
type PaymentMonitor struct {
	store     RequestStore
	ledger    TransactionLedger
	verifiers VerifierSource

	interval          time.Duration
	verifyTimeout     time.Duration
	errorLogThreshold int

	mu    sync.Mutex
	tasks map[uuid.UUID]*monitorTask
}

func NewPaymentMonitor(store RequestStore, ledger TransactionLedger, verifiers VerifierSource, cfg MonitorConfig) *PaymentMonitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = defaultVerifyTimeout
	}
	if cfg.ErrorLogThreshold <= 0 {
		cfg.ErrorLogThreshold = defaultErrorLogThreshold
	}
	return &PaymentMonitor{
		store:             store,
		ledger:            ledger,
		verifiers:         verifiers,
		interval:          cfg.PollInterval,
		verifyTimeout:     cfg.VerifyTimeout,
		errorLogThreshold: cfg.ErrorLogThreshold,
		tasks:             make(map[uuid.UUID]*monitorTask),
	}
}

// Start registers a polling task for the request and returns once it is
// running. Non-pending and already-expired requests are rejected. An
// existing task for the same id is cancelled and fully drained before the
// replacement starts, so two loops never watch one request. The task's
// lifetime is bounded by the request's expiry plus one interval, not by
// the caller's context.
func (m *PaymentMonitor) Start(ctx context.Context, req *entities.PaymentRequest) error {
	if req.Status != entities.PaymentRequestStatusPending {
		return domainerrors.ErrRequestNotPending
	}
	if req.Expired(timeNow()) {
		return domainerrors.ErrRequestExpired
	}

	taskCtx, cancel := context.WithDeadline(context.Background(), req.ExpiresAt.Add(m.interval))
	t := &monitorTask{
		requestID: req.ID,
		chain:     req.Chain,
		ctx:       taskCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	old := m.tasks[req.ID]
	m.tasks[req.ID] = t
	metrics.ActiveMonitors.Set(float64(len(m.tasks)))
	m.mu.Unlock()

	if old != nil {
		old.cancel()
		<-old.done
	}

	logger.Info(ctx, "monitoring started",
		zap.String("request_id", req.ID.String()),
		zap.String("chain", req.Chain),
		zap.Time("expires_at", req.ExpiresAt))

	go m.run(t)
	return nil
}

// Stop cancels the task for the id. Unknown ids are a no-op. The goroutine
// unwinds on its own; callers are not blocked on it.
func (m *PaymentMonitor) Stop(id uuid.UUID) {
	m.mu.Lock()
	t, ok := m.tasks[id]
	m.mu.Unlock()
	if !ok {
		return
	}
	t.cancel()
}

// StopAll cancels every task and waits for all goroutines to unwind.
func (m *PaymentMonitor) StopAll() {
	m.mu.Lock()
	tasks := make([]*monitorTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
}

// RestoreActive rebuilds monitoring after a restart. Pending requests past
// their expiry are expired in place (conditionally, so reruns and races are
// safe); live pending requests get a fresh task; everything else is skipped.
func (m *PaymentMonitor) RestoreActive(ctx context.Context, requests []*entities.PaymentRequest) {
	now := timeNow()
	restored, expired := 0, 0

	for _, req := range requests {
		if req.Status != entities.PaymentRequestStatusPending {
			continue
		}

		if req.Expired(now) {
			moved, err := m.store.ExpireRequest(ctx, req.ID)
			if err != nil {
				logger.Error(ctx, "failed to expire overdue request during restore",
					zap.String("request_id", req.ID.String()), zap.Error(err))
				continue
			}
			if moved {
				metrics.RequestsExpiredTotal.WithLabelValues("restore").Inc()
				expired++
			}
			continue
		}

		if err := m.Start(ctx, req); err != nil {
			logger.Error(ctx, "failed to restore monitoring",
				zap.String("request_id", req.ID.String()), zap.Error(err))
			continue
		}
		restored++
	}

	logger.Info(ctx, "monitoring restored",
		zap.Int("tasks", restored),
		zap.Int("expired_on_restore", expired),
		zap.Int("considered", len(requests)))
}

// ActiveCount reports the number of live tasks.
func (m *PaymentMonitor) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// IsActive reports whether the request is being monitored.
func (m *PaymentMonitor) IsActive(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[id]
	return ok
}

// remove drops the task from the registry unless it has already been
// replaced by a newer one for the same id.
func (m *PaymentMonitor) remove(t *monitorTask) {
	m.mu.Lock()
	if cur, ok := m.tasks[t.requestID]; ok && cur == t {
		delete(m.tasks, t.requestID)
	}
	metrics.ActiveMonitors.Set(float64(len(m.tasks)))
	m.mu.Unlock()
}

func (m *PaymentMonitor) run(t *monitorTask) {
	defer close(t.done)
	defer m.remove(t)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			if errors.Is(t.ctx.Err(), context.DeadlineExceeded) {
				m.finishAtCeiling(t)
			}
			return
		case <-ticker.C:
			if done := m.pollOnce(t.ctx, t); done {
				return
			}
		}
	}
}

// pollOnce runs one iteration. Returning true ends the task.
func (m *PaymentMonitor) pollOnce(ctx context.Context, t *monitorTask) bool {
	req, err := m.store.GetRequest(ctx, t.requestID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "monitored request disappeared, stopping task",
				zap.String("request_id", t.requestID.String()))
			return true
		}
		logger.Warn(ctx, "failed to re-read request, will retry",
			zap.String("request_id", t.requestID.String()), zap.Error(err))
		return false
	}

	// A positive result from an earlier iteration is not fully persisted
	// yet. Nothing is final until it is, so this outranks the status check:
	// the transition may already be durable while the ledger row is not.
	if t.pendingResult != nil {
		won, err := m.applyDetached(req, t.pendingResult)
		t.wonCompletion = t.wonCompletion || won
		if err != nil {
			logger.Error(ctx, "completion still not fully persisted, will retry",
				zap.String("request_id", req.ID.String()), zap.Error(err))
			return false
		}
		m.finishCompleted(ctx, t, t.pendingResult)
		return true
	}

	if req.Status.IsTerminal() {
		logger.Debug(ctx, "request reached terminal state elsewhere, stopping task",
			zap.String("request_id", req.ID.String()),
			zap.String("status", string(req.Status)))
		return true
	}

	// Expiry is checked before the oracle is consulted, so a request never
	// completes on a poll that begins after its deadline.
	if req.Expired(timeNow()) {
		moved, err := m.store.ExpireRequest(ctx, req.ID)
		if err != nil {
			logger.Warn(ctx, "failed to expire request, will retry",
				zap.String("request_id", req.ID.String()), zap.Error(err))
			return false
		}
		if moved {
			metrics.RequestsExpiredTotal.WithLabelValues("monitor").Inc()
			logger.Info(ctx, "request expired",
				zap.String("request_id", req.ID.String()))
		}
		return true
	}

	verifier, err := m.verifiers.ForChain(req.Chain)
	if err != nil {
		logger.Error(ctx, "no verifier for chain, request stays pending",
			zap.String("request_id", req.ID.String()),
			zap.String("chain", req.Chain), zap.Error(err))
		return false
	}

	vctx, cancel := context.WithTimeout(ctx, m.verifyTimeout)
	started := timeNow()
	res, err := verifier.Verify(vctx, verification.Query{
		Chain:     req.Chain,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Since:     req.CreatedAt,
	})
	cancel()

	metrics.PollsTotal.WithLabelValues(req.Chain).Inc()
	metrics.VerifyDuration.WithLabelValues(req.Chain).Observe(timeNow().Sub(started).Seconds())

	if err != nil {
		t.consecutiveErrors++
		metrics.OracleErrorsTotal.WithLabelValues(req.Chain).Inc()
		fields := []zap.Field{
			zap.String("request_id", req.ID.String()),
			zap.Int("consecutive_errors", t.consecutiveErrors),
			zap.Error(err),
		}
		if t.consecutiveErrors >= m.errorLogThreshold {
			logger.Error(ctx, "verification keeps failing, request stays pending", fields...)
		} else {
			logger.Warn(ctx, "verification failed, will retry", fields...)
		}
		return false
	}
	t.consecutiveErrors = 0

	if !res.Verified {
		// Poll bookkeeping only; a failed write must not affect the task.
		if err := m.store.TouchLastChecked(ctx, req.ID, timeNow()); err != nil {
			logger.Debug(ctx, "failed to persist last_checked",
				zap.String("request_id", req.ID.String()), zap.Error(err))
		}
		return false
	}

	won, err := m.applyDetached(req, res)
	t.wonCompletion = t.wonCompletion || won
	if err != nil {
		// One immediate retry, then hand the result to the next iteration.
		won, err = m.applyDetached(req, res)
		t.wonCompletion = t.wonCompletion || won
		if err != nil {
			t.pendingResult = res
			logger.Error(ctx, "verified payment not fully persisted, will retry",
				zap.String("request_id", req.ID.String()),
				zap.String("tx_hash", res.TxHash), zap.Error(err))
			return false
		}
	}

	m.finishCompleted(ctx, t, res)
	return true
}

// applyCompletion persists the two halves of a completion: the conditional
// status transition and the ledger record. Both are idempotent, so it can
// run any number of times for the same result.
func (m *PaymentMonitor) applyCompletion(ctx context.Context, req *entities.PaymentRequest, res *verification.Result) (bool, error) {
	won, err := m.store.CompleteRequest(ctx, req.ID, res.TxHash)
	if err != nil {
		return false, err
	}
	if err := m.ledger.RecordVerified(ctx, req, res); err != nil {
		return won, err
	}
	return won, nil
}

// applyDetached runs the critical writes on their own bounded context, so a
// cancellation arriving mid-apply cannot split the transition from the
// ledger record.
func (m *PaymentMonitor) applyDetached(req *entities.PaymentRequest, res *verification.Result) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), criticalWriteTimeout)
	defer cancel()
	return m.applyCompletion(ctx, req, res)
}

func (m *PaymentMonitor) finishCompleted(ctx context.Context, t *monitorTask, res *verification.Result) {
	if t.wonCompletion {
		metrics.RequestsCompletedTotal.WithLabelValues("monitor").Inc()
	}
	logger.Info(ctx, "payment verified, monitoring finished",
		zap.String("request_id", t.requestID.String()),
		zap.String("tx_hash", res.TxHash),
		zap.Bool("completed_here", t.wonCompletion))
}

// finishAtCeiling runs when the task context's deadline fires, meaning the
// request outlived its expiry by a full interval without a normal poll
// resolving it. The task's context is dead, so the last writes get a fresh
// bounded one.
func (m *PaymentMonitor) finishAtCeiling(t *monitorTask) {
	ctx, cancel := context.WithTimeout(context.Background(), criticalWriteTimeout)
	defer cancel()

	// Evidence of payment from a failed earlier iteration outranks expiry:
	// the money arrived before the deadline, only our bookkeeping is late.
	if t.pendingResult != nil {
		req, err := m.store.GetRequest(ctx, t.requestID)
		if err == nil {
			won, err := m.applyCompletion(ctx, req, t.pendingResult)
			t.wonCompletion = t.wonCompletion || won
			if err == nil {
				m.finishCompleted(ctx, t, t.pendingResult)
				return
			}
		}
		logger.Error(ctx, "verified payment could not be persisted at monitoring ceiling",
			zap.String("request_id", t.requestID.String()),
			zap.String("tx_hash", t.pendingResult.TxHash))
	}

	moved, err := m.store.ExpireRequest(ctx, t.requestID)
	if err != nil {
		logger.Error(ctx, "failed to expire request at monitoring ceiling",
			zap.String("request_id", t.requestID.String()), zap.Error(err))
		return
	}
	if moved {
		metrics.RequestsExpiredTotal.WithLabelValues("ceiling").Inc()
		logger.Warn(ctx, "request expired at monitoring ceiling",
			zap.String("request_id", t.requestID.String()))
	}
}
