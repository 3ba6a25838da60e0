package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/interfaces/http/response"
)

type verificationEventService interface {
	ProcessVerificationEvent(ctx context.Context, eventType string, data json.RawMessage) error
}

// WebhookHandler handles pushes from the verification service
type WebhookHandler struct {
	webhookUsecase verificationEventService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookUsecase verificationEventService) *WebhookHandler {
	return &WebhookHandler{webhookUsecase: webhookUsecase}
}

// HandleVerificationWebhook accepts a pushed verification event
// POST /api/v1/webhooks/verification
func (h *WebhookHandler) HandleVerificationWebhook(c *gin.Context) {
	var input struct {
		EventType string          `json:"eventType" binding:"required"`
		Data      json.RawMessage `json:"data"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	if err := h.webhookUsecase.ProcessVerificationEvent(c.Request.Context(), input.EventType, input.Data); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"received": true})
}
