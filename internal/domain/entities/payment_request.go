package entities

import (
	"time"

	"github.com/google/uuid"
)

// PaymentRequestStatus represents the status of a payment request
type PaymentRequestStatus string

const (
	PaymentRequestStatusPending   PaymentRequestStatus = "pending"
	PaymentRequestStatusCompleted PaymentRequestStatus = "completed"
	PaymentRequestStatusExpired   PaymentRequestStatus = "expired"
	PaymentRequestStatusFailed    PaymentRequestStatus = "failed"
)

// IsTerminal reports whether the status can never change again.
func (s PaymentRequestStatus) IsTerminal() bool {
	return s == PaymentRequestStatusCompleted ||
		s == PaymentRequestStatusExpired ||
		s == PaymentRequestStatusFailed
}

// PaymentRequest represents a merchant's fixed-amount payment request.
// A request starts pending and resolves exactly once: to completed when the
// matching transfer is detected on-chain, to expired when ExpiresAt passes,
// or to failed when aborted by the merchant.
type PaymentRequest struct {
	ID          uuid.UUID            `json:"id"`
	Amount      string               `json:"amount"` // Decimal string, exact units
	Currency    string               `json:"currency"`
	Chain       string               `json:"chain"`
	Recipient   string               `json:"recipient"`
	Description string               `json:"description,omitempty"`
	Status      PaymentRequestStatus `json:"status"`
	TxHash      string               `json:"txHash,omitempty"`
	LastChecked *time.Time           `json:"lastChecked,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	ExpiresAt   time.Time            `json:"expiresAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// Expired reports whether the request is past its expiry at the given time.
func (r *PaymentRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
