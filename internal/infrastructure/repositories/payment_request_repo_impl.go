package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/infrastructure/models"
)

// PaymentRequestRepositoryImpl implements PaymentRequestRepository
type PaymentRequestRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentRequestRepository(db *gorm.DB) *PaymentRequestRepositoryImpl {
	return &PaymentRequestRepositoryImpl{db: db}
}

func (r *PaymentRequestRepositoryImpl) Create(ctx context.Context, req *entities.PaymentRequest) error {
	m := &models.PaymentRequest{
		ID:          req.ID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Chain:       req.Chain,
		Recipient:   req.Recipient,
		Description: req.Description,
		Status:      string(req.Status),
		TxHash:      req.TxHash,
		LastChecked: req.LastChecked,
		CreatedAt:   req.CreatedAt,
		ExpiresAt:   req.ExpiresAt,
		UpdatedAt:   req.UpdatedAt,
	}
	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Create(m).Error
}

func (r *PaymentRequestRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error) {
	var m models.PaymentRequest
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *PaymentRequestRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*entities.PaymentRequest, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.PaymentRequest{}).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.PaymentRequest
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	var requests []*entities.PaymentRequest
	for _, m := range ms {
		model := m
		requests = append(requests, r.toEntity(&model))
	}
	return requests, int(total), nil
}

func (r *PaymentRequestRepositoryImpl) ListByStatus(ctx context.Context, status entities.PaymentRequestStatus) ([]*entities.PaymentRequest, error) {
	var ms []models.PaymentRequest
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	var requests []*entities.PaymentRequest
	for _, m := range ms {
		model := m
		requests = append(requests, r.toEntity(&model))
	}
	return requests, nil
}

// TransitionFromPending moves a request out of pending. The status guard in the
// WHERE clause makes concurrent transitions race-safe: only one caller sees
// RowsAffected == 1, everyone else gets false with no error.
func (r *PaymentRequestRepositoryImpl) TransitionFromPending(ctx context.Context, id uuid.UUID, to entities.PaymentRequestStatus) (bool, error) {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.PaymentRequest{}).
		Where("id = ? AND status = ?", id, entities.PaymentRequestStatusPending).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PaymentRequestRepositoryImpl) MarkCompleted(ctx context.Context, id uuid.UUID, txHash string) (bool, error) {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.PaymentRequest{}).
		Where("id = ? AND status = ?", id, entities.PaymentRequestStatusPending).
		Updates(map[string]interface{}{
			"status":     entities.PaymentRequestStatusCompleted,
			"tx_hash":    txHash,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TouchLastChecked records poll bookkeeping. Not a state change, so
// updated_at is left alone.
func (r *PaymentRequestRepositoryImpl) TouchLastChecked(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.PaymentRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_checked": at,
		}).Error
}

func (r *PaymentRequestRepositoryImpl) GetExpiredPending(ctx context.Context, limit int) ([]*entities.PaymentRequest, error) {
	var ms []models.PaymentRequest
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", entities.PaymentRequestStatusPending, time.Now()).
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}

	var requests []*entities.PaymentRequest
	for _, m := range ms {
		model := m
		requests = append(requests, r.toEntity(&model))
	}
	return requests, nil
}

func (r *PaymentRequestRepositoryImpl) ExpireRequests(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.PaymentRequest{}).
		Where("id IN ? AND status = ?", ids, entities.PaymentRequestStatusPending).
		Updates(map[string]interface{}{
			"status":     entities.PaymentRequestStatusExpired,
			"updated_at": time.Now(),
		}).Error
}

func (r *PaymentRequestRepositoryImpl) toEntity(m *models.PaymentRequest) *entities.PaymentRequest {
	return &entities.PaymentRequest{
		ID:          m.ID,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Chain:       m.Chain,
		Recipient:   m.Recipient,
		Description: m.Description,
		Status:      entities.PaymentRequestStatus(m.Status),
		TxHash:      m.TxHash,
		LastChecked: m.LastChecked,
		CreatedAt:   m.CreatedAt,
		ExpiresAt:   m.ExpiresAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
