package models

import (
	"time"

	"github.com/google/uuid"
)

type Transaction struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RequestID   *uuid.UUID `gorm:"type:uuid;index"` // Nullable
	TxHash      string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_transactions_chain_tx_hash"`
	Amount      string     `gorm:"type:decimal(36,18);not null"`
	Currency    string     `gorm:"type:varchar(20);not null"`
	Chain       string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_transactions_chain_tx_hash"`
	FromAddress *string    `gorm:"type:varchar(255)"`
	ToAddress   *string    `gorm:"type:varchar(255)"`
	Status      string     `gorm:"type:varchar(50);not null;index"`
	Timestamp   time.Time  `gorm:"not null"`
	CreatedAt   time.Time
}
