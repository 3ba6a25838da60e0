package verification

import (
	"context"
	"time"
)

// Query describes the payment a monitoring task is waiting for.
type Query struct {
	Chain     string    `json:"chain"`
	Recipient string    `json:"recipient"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Since     time.Time `json:"since"`
}

// Result is the oracle's answer for one Query.
type Result struct {
	Verified    bool      `json:"verified"`
	TxHash      string    `json:"txHash"`
	FromAddress string    `json:"fromAddress"`
	ToAddress   string    `json:"toAddress"`
	Amount      string    `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// Verifier answers whether a matching inbound payment exists. Calls must be
// safe to repeat: the scheduler's poll interval is the retry mechanism, so
// implementations do not retry internally and should bound each call with
// the context deadline.
type Verifier interface {
	Verify(ctx context.Context, q Query) (*Result, error)
}
