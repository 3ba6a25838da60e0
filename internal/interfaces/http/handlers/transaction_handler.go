package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/interfaces/http/response"
	"pay-watch.backend/pkg/utils"
)

type transactionLedgerService interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)
	GetRequestTransaction(ctx context.Context, requestID uuid.UUID) (*entities.Transaction, error)
	ListTransactions(ctx context.Context, limit, offset int) ([]*entities.Transaction, int, error)
}

// TransactionHandler handles transaction ledger endpoints
type TransactionHandler struct {
	ledger transactionLedgerService
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledger transactionLedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// GetTransaction returns a recorded transaction by ID
// GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid transaction ID"))
		return
	}

	tx, err := h.ledger.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tx)
}

// GetRequestTransaction returns the completing transaction of a request
// GET /api/v1/payment-requests/:id/transaction
func (h *TransactionHandler) GetRequestTransaction(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request ID"))
		return
	}

	tx, err := h.ledger.GetRequestTransaction(c.Request.Context(), requestID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tx)
}

// ListTransactions lists recorded transactions, newest first
// GET /api/v1/transactions
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	params := utils.GetPaginationParams(page, limit)

	txs, total, err := h.ledger.ListTransactions(c.Request.Context(), params.Limit, params.CalculateOffset())
	if err != nil {
		response.Error(c, err)
		return
	}
	if txs == nil {
		txs = []*entities.Transaction{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"transactions": txs,
		"pagination":   utils.CalculateMeta(int64(total), params.Page, params.Limit),
	})
}
