package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// TransactionStatus represents the status of a recorded transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction represents an on-chain transfer materialized by the ledger.
// RequestID is a non-owning back-reference to the payment request the
// transfer settled, nil for transfers recorded outside any request.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	RequestID   *uuid.UUID        `json:"requestId,omitempty"`
	TxHash      string            `json:"txHash"` // Unique per chain
	Amount      string            `json:"amount"` // Decimal string
	Currency    string            `json:"currency"`
	Chain       string            `json:"chain"`
	FromAddress null.String       `json:"from,omitempty"`
	ToAddress   null.String       `json:"to,omitempty"`
	Status      TransactionStatus `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	CreatedAt   time.Time         `json:"createdAt"`
}
