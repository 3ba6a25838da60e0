package repositories

import (
	"context"

	"github.com/google/uuid"
	"pay-watch.backend/internal/domain/entities"
)

// TransactionRepository interface
type TransactionRepository interface {
	Create(ctx context.Context, transaction *entities.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)
	GetByTxHash(ctx context.Context, chain, txHash string) (*entities.Transaction, error)
	GetCompletedByRequestID(ctx context.Context, requestID uuid.UUID) (*entities.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]*entities.Transaction, int, error)
}
