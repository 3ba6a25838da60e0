package usecases

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	domainRepos "pay-watch.backend/internal/domain/repositories"
	"pay-watch.backend/internal/infrastructure/verification"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/utils"
)

// TransactionLedgerUsecase materializes verified on-chain transfers exactly
// once. Dedup keys: (chain, txHash) system-wide and one completed row per
// request. The check runs inside a unit of work; a unique index on
// (chain, tx_hash) backs it, and a lost insert race resolves to a lookup.
type TransactionLedgerUsecase struct {
	txRepo domainRepos.TransactionRepository
	uow    domainRepos.UnitOfWork
}

func NewTransactionLedgerUsecase(txRepo domainRepos.TransactionRepository, uow domainRepos.UnitOfWork) *TransactionLedgerUsecase {
	return &TransactionLedgerUsecase{txRepo: txRepo, uow: uow}
}

// Record persists the transaction idempotently and returns the stored row:
// the given one on a fresh insert, the existing one on a duplicate. Safe
// under concurrent calls for the same transfer.
func (uc *TransactionLedgerUsecase) Record(ctx context.Context, tx *entities.Transaction) (*entities.Transaction, error) {
	if tx.TxHash == "" {
		return nil, domainerrors.BadRequest("transaction hash is required")
	}
	if tx.Chain == "" {
		return nil, domainerrors.BadRequest("chain is required")
	}

	if tx.ID == uuid.Nil {
		tx.ID = utils.GenerateUUIDv7()
	}
	if tx.Status == "" {
		tx.Status = entities.TransactionStatusCompleted
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = timeNow()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = timeNow()
	}

	var stored *entities.Transaction
	err := uc.uow.Do(ctx, func(txCtx context.Context) error {
		existing, err := uc.txRepo.GetByTxHash(txCtx, tx.Chain, tx.TxHash)
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return err
		}

		if tx.RequestID != nil {
			existing, err = uc.txRepo.GetCompletedByRequestID(txCtx, *tx.RequestID)
			if err == nil {
				stored = existing
				return nil
			}
			if !errors.Is(err, domainerrors.ErrNotFound) {
				return err
			}
		}

		if err := uc.txRepo.Create(txCtx, tx); err != nil {
			return err
		}
		stored = tx
		return nil
	})
	if err != nil {
		// A concurrent writer may have landed the same hash between our
		// check and insert; the unique index turned that into an error.
		// The aborted transaction is gone, so look again outside it.
		if existing, lookupErr := uc.txRepo.GetByTxHash(ctx, tx.Chain, tx.TxHash); lookupErr == nil {
			logger.Debug(ctx, "transaction already recorded by a concurrent writer",
				zap.String("chain", tx.Chain), zap.String("tx_hash", tx.TxHash))
			return existing, nil
		}
		return nil, domainerrors.InternalError(err)
	}
	return stored, nil
}

// RecordVerified adapts an oracle result to a ledger record for the
// monitoring scheduler, falling back to request fields for anything the
// oracle omitted.
func (uc *TransactionLedgerUsecase) RecordVerified(ctx context.Context, req *entities.PaymentRequest, res *verification.Result) error {
	amount := res.Amount
	if amount == "" {
		amount = req.Amount
	}
	to := res.ToAddress
	if to == "" {
		to = req.Recipient
	}
	ts := res.Timestamp
	if ts.IsZero() {
		ts = timeNow()
	}

	requestID := req.ID
	_, err := uc.Record(ctx, &entities.Transaction{
		RequestID:   &requestID,
		TxHash:      res.TxHash,
		Amount:      amount,
		Currency:    req.Currency,
		Chain:       req.Chain,
		FromAddress: null.NewString(res.FromAddress, res.FromAddress != ""),
		ToAddress:   null.NewString(to, to != ""),
		Status:      entities.TransactionStatusCompleted,
		Timestamp:   ts,
	})
	return err
}

// GetTransaction looks a transaction up by id.
func (uc *TransactionLedgerUsecase) GetTransaction(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	tx, err := uc.txRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("transaction not found")
		}
		return nil, domainerrors.InternalError(err)
	}
	return tx, nil
}

// GetRequestTransaction returns the transaction that settled the request.
func (uc *TransactionLedgerUsecase) GetRequestTransaction(ctx context.Context, requestID uuid.UUID) (*entities.Transaction, error) {
	tx, err := uc.txRepo.GetCompletedByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("no settled transaction for this request")
		}
		return nil, domainerrors.InternalError(err)
	}
	return tx, nil
}

// ListTransactions returns a page of transactions, newest first.
func (uc *TransactionLedgerUsecase) ListTransactions(ctx context.Context, limit, offset int) ([]*entities.Transaction, int, error) {
	return uc.txRepo.List(ctx, limit, offset)
}
