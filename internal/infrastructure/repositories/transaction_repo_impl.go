package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/infrastructure/models"
)

// TransactionRepositoryImpl implements TransactionRepository
type TransactionRepositoryImpl struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepositoryImpl {
	return &TransactionRepositoryImpl{db: db}
}

func (r *TransactionRepositoryImpl) Create(ctx context.Context, tx *entities.Transaction) error {
	m := &models.Transaction{
		ID:          tx.ID,
		RequestID:   tx.RequestID,
		TxHash:      tx.TxHash,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		Chain:       tx.Chain,
		FromAddress: tx.FromAddress.Ptr(),
		ToAddress:   tx.ToAddress.Ptr(),
		Status:      string(tx.Status),
		Timestamp:   tx.Timestamp,
		CreatedAt:   tx.CreatedAt,
	}
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	tx.ID = m.ID
	return nil
}

func (r *TransactionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	var m models.Transaction
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *TransactionRepositoryImpl) GetByTxHash(ctx context.Context, chain, txHash string) (*entities.Transaction, error) {
	var m models.Transaction
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("chain = ? AND tx_hash = ?", chain, txHash).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *TransactionRepositoryImpl) GetCompletedByRequestID(ctx context.Context, requestID uuid.UUID) (*entities.Transaction, error) {
	var m models.Transaction
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("request_id = ? AND status = ?", requestID, entities.TransactionStatusCompleted).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *TransactionRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*entities.Transaction, int, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := db.WithContext(ctx).Model(&models.Transaction{}).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.Transaction
	if err := db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	var txs []*entities.Transaction
	for _, m := range ms {
		model := m
		txs = append(txs, r.toEntity(&model))
	}
	return txs, int(total), nil
}

func (r *TransactionRepositoryImpl) toEntity(m *models.Transaction) *entities.Transaction {
	return &entities.Transaction{
		ID:          m.ID,
		RequestID:   m.RequestID,
		TxHash:      m.TxHash,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Chain:       m.Chain,
		FromAddress: null.StringFromPtr(m.FromAddress),
		ToAddress:   null.StringFromPtr(m.ToAddress),
		Status:      entities.TransactionStatus(m.Status),
		Timestamp:   m.Timestamp,
		CreatedAt:   m.CreatedAt,
	}
}
