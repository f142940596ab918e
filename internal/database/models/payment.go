package models

import "github.com/google/uuid"

type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
)

// Payment records a confirmed provider payment. ProviderIntentID is
// uniquely indexed so duplicate webhook deliveries cannot double-insert.
type Payment struct {
	Base
	UserID           uuid.UUID     `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount           int64         `gorm:"not null" json:"amount"` // provider minor units (cents)
	Status           PaymentStatus `gorm:"not null" json:"status"`
	ProviderIntentID string        `gorm:"uniqueIndex;not null" json:"provider_intent_id"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
