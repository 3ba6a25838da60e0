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
	"pay-watch.backend/internal/usecases"
	"pay-watch.backend/pkg/utils"
)

// RequestLifecycleService is the lifecycle surface the handler routes to.
type RequestLifecycleService interface {
	CreateRequest(ctx context.Context, input usecases.CreateRequestInput) (*entities.PaymentRequest, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*entities.PaymentRequest, error)
	ListRequests(ctx context.Context, limit, offset int) ([]*entities.PaymentRequest, int, error)
	FailRequest(ctx context.Context, id uuid.UUID) error
}

// PaymentRequestHandler handles payment request endpoints
type PaymentRequestHandler struct {
	lifecycle RequestLifecycleService
}

// NewPaymentRequestHandler creates a new payment request handler
func NewPaymentRequestHandler(lifecycle RequestLifecycleService) *PaymentRequestHandler {
	return &PaymentRequestHandler{lifecycle: lifecycle}
}

type CreatePaymentRequestBody struct {
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency"`
	Chain       string `json:"chain" binding:"required"`
	Recipient   string `json:"recipient" binding:"required"`
	Description string `json:"description"`
}

// CreatePaymentRequest creates a payment request and starts monitoring it
// POST /api/v1/payment-requests
func (h *PaymentRequestHandler) CreatePaymentRequest(c *gin.Context) {
	var body CreatePaymentRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	req, err := h.lifecycle.CreateRequest(c.Request.Context(), usecases.CreateRequestInput{
		Amount:      body.Amount,
		Currency:    body.Currency,
		Chain:       body.Chain,
		Recipient:   body.Recipient,
		Description: body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, req)
}

// GetPaymentRequest returns a payment request by ID
// GET /api/v1/payment-requests/:id
func (h *PaymentRequestHandler) GetPaymentRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request ID"))
		return
	}

	req, err := h.lifecycle.GetRequest(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, req)
}

// ListPaymentRequests lists payment requests, newest first
// GET /api/v1/payment-requests
func (h *PaymentRequestHandler) ListPaymentRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	params := utils.GetPaginationParams(page, limit)

	requests, total, err := h.lifecycle.ListRequests(c.Request.Context(), params.Limit, params.CalculateOffset())
	if err != nil {
		response.Error(c, err)
		return
	}
	if requests == nil {
		requests = []*entities.PaymentRequest{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"requests":   requests,
		"pagination": utils.CalculateMeta(int64(total), params.Page, params.Limit),
	})
}

// FailPaymentRequest aborts a pending payment request
// POST /api/v1/payment-requests/:id/fail
func (h *PaymentRequestHandler) FailPaymentRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request ID"))
		return
	}

	if err := h.lifecycle.FailRequest(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	// echo whatever state won; an abort racing a detected payment is a no-op
	req, err := h.lifecycle.GetRequest(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, req)
}

// GetPublicPaymentRequest exposes the payer-facing view of a request
// GET /api/v1/pay/:id
func (h *PaymentRequestHandler) GetPublicPaymentRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid request ID"))
		return
	}

	req, err := h.lifecycle.GetRequest(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	// payment coordinates only; monitoring internals stay private
	response.Success(c, http.StatusOK, gin.H{
		"requestId":   req.ID,
		"amount":      req.Amount,
		"currency":    req.Currency,
		"chain":       req.Chain,
		"recipient":   req.Recipient,
		"description": req.Description,
		"status":      req.Status,
		"expiresAt":   req.ExpiresAt,
	})
}
