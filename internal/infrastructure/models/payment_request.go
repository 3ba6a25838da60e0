package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentRequest struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Amount      string    `gorm:"type:decimal(36,18);not null"`
	Currency    string    `gorm:"type:varchar(20);not null"`
	Chain       string    `gorm:"type:varchar(50);not null;index"`
	Recipient   string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	Status      string    `gorm:"type:varchar(50);not null;index"`
	TxHash      string    `gorm:"type:varchar(255)"`
	LastChecked *time.Time
	CreatedAt   time.Time
	ExpiresAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time
}
