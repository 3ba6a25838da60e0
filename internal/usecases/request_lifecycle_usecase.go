package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	domainRepos "pay-watch.backend/internal/domain/repositories"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/metrics"
	"pay-watch.backend/pkg/redis"
	"pay-watch.backend/pkg/utils"
)

var timeNow = time.Now

// RequestScheduler is the slice of the monitoring scheduler the lifecycle
// drives. Implemented by jobs.PaymentMonitor.
type RequestScheduler interface {
	Start(ctx context.Context, req *entities.PaymentRequest) error
	Stop(id uuid.UUID)
}

// RequestLifecycleUsecase is the single writer of payment request state.
// It layers an advisory Redis cache and a process-local fallback map over
// the repository: the cache serves hot payer reads, the fallback keeps a
// request usable when the store rejected its creation.
type RequestLifecycleUsecase struct {
	requestRepo domainRepos.PaymentRequestRepository
	cache       *redis.Cache

	mu        sync.RWMutex
	scheduler RequestScheduler
	fallback  map[uuid.UUID]*entities.PaymentRequest
}

func NewRequestLifecycleUsecase(requestRepo domainRepos.PaymentRequestRepository, cache *redis.Cache) *RequestLifecycleUsecase {
	return &RequestLifecycleUsecase{
		requestRepo: requestRepo,
		cache:       cache,
		fallback:    make(map[uuid.UUID]*entities.PaymentRequest),
	}
}

// AttachScheduler wires the monitoring scheduler in after construction;
// the scheduler itself reads request state back through this usecase.
func (uc *RequestLifecycleUsecase) AttachScheduler(s RequestScheduler) {
	uc.mu.Lock()
	uc.scheduler = s
	uc.mu.Unlock()
}

func (uc *RequestLifecycleUsecase) schedulerRef() RequestScheduler {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.scheduler
}

type CreateRequestInput struct {
	Amount      string
	Currency    string
	Chain       string
	Recipient   string
	Description string
}

// CreateRequest validates the input, persists a fresh pending request and
// starts monitoring for it. Persistence and scheduling failures are logged,
// not surfaced: the caller always gets a usable request back.
func (uc *RequestLifecycleUsecase) CreateRequest(ctx context.Context, input CreateRequestInput) (*entities.PaymentRequest, error) {
	if err := validateDecimalAmount(input.Amount); err != nil {
		return nil, domainerrors.BadRequest(err.Error())
	}
	if strings.TrimSpace(input.Chain) == "" {
		return nil, domainerrors.BadRequest("chain is required")
	}
	if strings.TrimSpace(input.Recipient) == "" {
		return nil, domainerrors.BadRequest("recipient is required")
	}

	now := timeNow()
	req := &entities.PaymentRequest{
		ID:          utils.GenerateUUIDv7(),
		Amount:      strings.TrimSpace(input.Amount),
		Currency:    strings.TrimSpace(input.Currency),
		Chain:       strings.TrimSpace(input.Chain),
		Recipient:   strings.TrimSpace(input.Recipient),
		Description: input.Description,
		Status:      entities.PaymentRequestStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(RequestExpiryDuration),
		UpdatedAt:   now,
	}

	if err := uc.requestRepo.Create(ctx, req); err != nil {
		logger.Error(ctx, "failed to persist payment request, keeping in-memory copy",
			zap.String("request_id", req.ID.String()), zap.Error(err))
		uc.keepFallback(req)
	}

	uc.cacheSave(ctx, req)

	if s := uc.schedulerRef(); s != nil {
		if err := s.Start(ctx, req); err != nil {
			logger.Error(ctx, "failed to start monitoring for new request",
				zap.String("request_id", req.ID.String()), zap.Error(err))
		}
	}

	return req, nil
}

// GetRequest is the read path: cache, then store, then the in-memory
// fallback. A pending request past its deadline is expired on the way out
// so no caller ever observes an overdue pending request.
func (uc *RequestLifecycleUsecase) GetRequest(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error) {
	req := uc.fromCache(ctx, id)
	if req == nil {
		stored, err := uc.requestRepo.GetByID(ctx, id)
		switch {
		case err == nil:
			req = stored
		case errors.Is(err, domainerrors.ErrNotFound):
			if req = uc.fromFallback(id); req == nil {
				return nil, domainerrors.NotFound("payment request not found")
			}
		default:
			if req = uc.fromFallback(id); req == nil {
				return nil, domainerrors.InternalError(err)
			}
			logger.Warn(ctx, "request store unavailable, serving in-memory copy",
				zap.String("request_id", id.String()), zap.Error(err))
		}
	}

	uc.lazyExpire(ctx, req)
	return req, nil
}

// ListRequests returns a page of requests, newest first, with the total.
func (uc *RequestLifecycleUsecase) ListRequests(ctx context.Context, limit, offset int) ([]*entities.PaymentRequest, int, error) {
	return uc.requestRepo.List(ctx, limit, offset)
}

// ListPendingRequests returns every pending request; the crash-recovery
// path feeds these to the scheduler's RestoreActive.
func (uc *RequestLifecycleUsecase) ListPendingRequests(ctx context.Context) ([]*entities.PaymentRequest, error) {
	return uc.requestRepo.ListByStatus(ctx, entities.PaymentRequestStatusPending)
}

// TransitionStatus moves a request to a terminal status, monotonically:
// a request that is already terminal is left untouched and reports no
// error. Winning a transition also stops its monitoring task.
func (uc *RequestLifecycleUsecase) TransitionStatus(ctx context.Context, id uuid.UUID, to entities.PaymentRequestStatus) error {
	if !to.IsTerminal() {
		return domainerrors.BadRequest("target status must be terminal")
	}

	req, err := uc.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.Status.IsTerminal() {
		return nil
	}

	moved, err := uc.requestRepo.TransitionFromPending(ctx, id, to)
	if err != nil {
		return domainerrors.InternalError(err)
	}

	now := timeNow()
	uc.reconcileFallback(id, func(r *entities.PaymentRequest) {
		if r.Status == entities.PaymentRequestStatusPending {
			r.Status = to
			r.UpdatedAt = now
		}
	})
	uc.cacheInvalidate(ctx, id)

	if moved {
		if s := uc.schedulerRef(); s != nil {
			s.Stop(id)
		}
	}
	return nil
}

// FailRequest aborts a pending request. This is the only producer of the
// failed status; the polling loop never fails a request on its own.
func (uc *RequestLifecycleUsecase) FailRequest(ctx context.Context, id uuid.UUID) error {
	return uc.TransitionStatus(ctx, id, entities.PaymentRequestStatusFailed)
}

// CompleteRequest applies the pending→completed transition together with
// the settling transaction hash. The bool reports whether this call moved
// the row, so concurrent finishers resolve to one winner.
func (uc *RequestLifecycleUsecase) CompleteRequest(ctx context.Context, id uuid.UUID, txHash string) (bool, error) {
	moved, err := uc.requestRepo.MarkCompleted(ctx, id, txHash)
	if err != nil {
		return false, err
	}

	now := timeNow()
	uc.reconcileFallback(id, func(r *entities.PaymentRequest) {
		if r.Status == entities.PaymentRequestStatusPending {
			r.Status = entities.PaymentRequestStatusCompleted
			r.TxHash = txHash
			r.UpdatedAt = now
		}
	})
	uc.cacheInvalidate(ctx, id)
	return moved, nil
}

// ExpireRequest applies the pending→expired transition. Same conditional
// contract as CompleteRequest.
func (uc *RequestLifecycleUsecase) ExpireRequest(ctx context.Context, id uuid.UUID) (bool, error) {
	moved, err := uc.requestRepo.TransitionFromPending(ctx, id, entities.PaymentRequestStatusExpired)
	if err != nil {
		return false, err
	}

	now := timeNow()
	uc.reconcileFallback(id, func(r *entities.PaymentRequest) {
		if r.Status == entities.PaymentRequestStatusPending {
			r.Status = entities.PaymentRequestStatusExpired
			r.UpdatedAt = now
		}
	})
	uc.cacheInvalidate(ctx, id)
	return moved, nil
}

// TouchLastChecked records the latest oracle poll time. Advisory: the
// cached copy is deliberately not invalidated for this.
func (uc *RequestLifecycleUsecase) TouchLastChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	uc.reconcileFallback(id, func(r *entities.PaymentRequest) {
		r.LastChecked = &at
	})
	return uc.requestRepo.TouchLastChecked(ctx, id, at)
}

// lazyExpire applies the expired transition on the read path. The clock
// fact stands even when persistence lags, so the local copy is marked
// regardless of the conditional update's outcome.
func (uc *RequestLifecycleUsecase) lazyExpire(ctx context.Context, req *entities.PaymentRequest) {
	if req.Status != entities.PaymentRequestStatusPending || !req.Expired(timeNow()) {
		return
	}

	moved, err := uc.ExpireRequest(ctx, req.ID)
	if err != nil {
		logger.Warn(ctx, "failed to expire request on read",
			zap.String("request_id", req.ID.String()), zap.Error(err))
	}
	if moved {
		metrics.RequestsExpiredTotal.WithLabelValues("read").Inc()
	}
	req.Status = entities.PaymentRequestStatusExpired
}

func (uc *RequestLifecycleUsecase) keepFallback(req *entities.PaymentRequest) {
	uc.mu.Lock()
	copied := *req
	uc.fallback[req.ID] = &copied
	uc.mu.Unlock()
}

func (uc *RequestLifecycleUsecase) fromFallback(id uuid.UUID) *entities.PaymentRequest {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	if r, ok := uc.fallback[id]; ok {
		copied := *r
		return &copied
	}
	return nil
}

func (uc *RequestLifecycleUsecase) reconcileFallback(id uuid.UUID, mutate func(*entities.PaymentRequest)) {
	uc.mu.Lock()
	if r, ok := uc.fallback[id]; ok {
		mutate(r)
	}
	uc.mu.Unlock()
}

func (uc *RequestLifecycleUsecase) fromCache(ctx context.Context, id uuid.UUID) *entities.PaymentRequest {
	if uc.cache == nil {
		return nil
	}
	var req entities.PaymentRequest
	if err := uc.cache.Load(ctx, id.String(), &req); err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			logger.Debug(ctx, "request cache read failed",
				zap.String("request_id", id.String()), zap.Error(err))
		}
		return nil
	}
	return &req
}

func (uc *RequestLifecycleUsecase) cacheSave(ctx context.Context, req *entities.PaymentRequest) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Save(ctx, req.ID.String(), req); err != nil {
		logger.Debug(ctx, "request cache write failed",
			zap.String("request_id", req.ID.String()), zap.Error(err))
	}
}

func (uc *RequestLifecycleUsecase) cacheInvalidate(ctx context.Context, id uuid.UUID) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx, id.String()); err != nil {
		logger.Debug(ctx, "request cache invalidation failed",
			zap.String("request_id", id.String()), zap.Error(err))
	}
}
