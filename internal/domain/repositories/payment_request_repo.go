package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"pay-watch.backend/internal/domain/entities"
)

// PaymentRequestRepository interface
type PaymentRequestRepository interface {
	Create(ctx context.Context, request *entities.PaymentRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error)
	List(ctx context.Context, limit, offset int) ([]*entities.PaymentRequest, int, error)
	ListByStatus(ctx context.Context, status entities.PaymentRequestStatus) ([]*entities.PaymentRequest, error)

	// TransitionFromPending sets the status only while the stored status is
	// still pending. It reports whether the row was updated, so callers can
	// tell a won transition from a lost race without a second read.
	TransitionFromPending(ctx context.Context, id uuid.UUID, to entities.PaymentRequestStatus) (bool, error)

	// MarkCompleted is TransitionFromPending(completed) plus the settling
	// transaction hash, applied in one conditional update.
	MarkCompleted(ctx context.Context, id uuid.UUID, txHash string) (bool, error)

	// TouchLastChecked records the most recent oracle poll time. Advisory;
	// failures are the caller's to ignore.
	TouchLastChecked(ctx context.Context, id uuid.UUID, at time.Time) error

	GetExpiredPending(ctx context.Context, limit int) ([]*entities.PaymentRequest, error)
	ExpireRequests(ctx context.Context, ids []uuid.UUID) error
}
