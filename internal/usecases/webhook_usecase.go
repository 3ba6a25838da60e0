package usecases

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/infrastructure/verification"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/metrics"
)

// WebhookUsecase lets the verification service push a detected payment
// instead of waiting for the next poll. Push and poll overlap safely: both
// run through the same conditional transition and idempotent ledger record.
type WebhookUsecase struct {
	lifecycle *RequestLifecycleUsecase
	ledger    *TransactionLedgerUsecase
	scheduler RequestScheduler
}

func NewWebhookUsecase(lifecycle *RequestLifecycleUsecase, ledger *TransactionLedgerUsecase, scheduler RequestScheduler) *WebhookUsecase {
	return &WebhookUsecase{
		lifecycle: lifecycle,
		ledger:    ledger,
		scheduler: scheduler,
	}
}

// ProcessVerificationEvent handles one pushed event. Unknown event types
// are logged and acknowledged so the sender does not retry them forever.
func (u *WebhookUsecase) ProcessVerificationEvent(ctx context.Context, eventType string, data json.RawMessage) error {
	switch eventType {
	case "payment.detected":
		return u.processPaymentDetected(ctx, data)
	default:
		logger.Warn(ctx, "unhandled verification event",
			zap.String("event_type", eventType))
		return nil
	}
}

func (u *WebhookUsecase) processPaymentDetected(ctx context.Context, data json.RawMessage) error {
	var payload struct {
		RequestID string    `json:"requestId"`
		TxHash    string    `json:"txHash"`
		From      string    `json:"from"`
		To        string    `json:"to"`
		Amount    string    `json:"amount"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return domainerrors.BadRequest("malformed payment.detected payload")
	}
	requestID, err := uuid.Parse(payload.RequestID)
	if err != nil {
		return domainerrors.BadRequest("invalid requestId")
	}
	if payload.TxHash == "" {
		return domainerrors.BadRequest("txHash is required")
	}

	// The read path lazily expires overdue requests, so a push arriving
	// after the deadline loses the transition but is still recorded below
	// as a ledger fact.
	req, err := u.lifecycle.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	won, err := u.lifecycle.CompleteRequest(ctx, requestID, payload.TxHash)
	if err != nil {
		return domainerrors.InternalError(err)
	}

	if err := u.ledger.RecordVerified(ctx, req, &verification.Result{
		Verified:    true,
		TxHash:      payload.TxHash,
		FromAddress: payload.From,
		ToAddress:   payload.To,
		Amount:      payload.Amount,
		Timestamp:   payload.Timestamp,
	}); err != nil {
		return err
	}

	if won {
		metrics.RequestsCompletedTotal.WithLabelValues("webhook").Inc()
		logger.Info(ctx, "request completed via webhook",
			zap.String("request_id", requestID.String()),
			zap.String("tx_hash", payload.TxHash))
	}

	if u.scheduler != nil {
		u.scheduler.Stop(requestID)
	}
	return nil
}
