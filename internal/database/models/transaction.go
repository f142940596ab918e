package models

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeRent TransactionType = "RENT"
	TransactionTypeBuy  TransactionType = "BUY"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusActive    TransactionStatus = "ACTIVE"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// allowedTransitions is the closed state machine for caller-driven status
// updates. COMPLETED and CANCELLED are terminal.
var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending: {TransactionStatusActive, TransactionStatusCancelled},
	TransactionStatusActive:  {TransactionStatusCompleted, TransactionStatusCancelled},
}

// ValidTransactionStatus reports whether s names a known status.
func ValidTransactionStatus(s string) bool {
	switch TransactionStatus(s) {
	case TransactionStatusPending, TransactionStatusActive,
		TransactionStatusCompleted, TransactionStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a transaction may move from one status to
// another.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActiveStatuses are the statuses that block deletion of the referenced
// item.
func ActiveStatuses() []TransactionStatus {
	return []TransactionStatus{TransactionStatusPending, TransactionStatusActive}
}

type Transaction struct {
	Base
	ItemID          uuid.UUID         `gorm:"type:uuid;index;not null" json:"item_id"`
	BuyerID         uuid.UUID         `gorm:"type:uuid;index;not null" json:"buyer_id"`
	SellerID        uuid.UUID         `gorm:"type:uuid;index;not null" json:"seller_id"`
	TransactionType TransactionType   `gorm:"not null" json:"transaction_type"`
	Status          TransactionStatus `gorm:"not null;index;default:'PENDING'" json:"status"`
	StartDate       *time.Time        `json:"start_date,omitempty"`
	EndDate         *time.Time        `json:"end_date,omitempty"`
	// Price is snapshotted from the item at creation time; later item
	// price edits do not change it.
	Price float64 `gorm:"not null" json:"price"`

	// Relationships
	Item   *ClothingItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Buyer  *User         `gorm:"foreignKey:BuyerID" json:"-"`
	Seller *User         `gorm:"foreignKey:SellerID" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}
