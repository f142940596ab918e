package models

import "github.com/google/uuid"

type ClothingItem struct {
	Base
	OwnerID            uuid.UUID   `gorm:"type:uuid;index;not null" json:"owner_id"`
	Title              string      `gorm:"not null" json:"title"`
	Description        string      `json:"description,omitempty"`
	Category           string      `gorm:"index;not null" json:"category"`
	Size               string      `gorm:"index;not null" json:"size"`
	Condition          string      `gorm:"not null" json:"condition"`
	PurchasePrice      float64     `json:"purchase_price"`
	RentalPrice        float64     `json:"rental_price"`
	IsAvailableForRent bool        `gorm:"default:true" json:"is_available_for_rent"`
	IsAvailableForSale bool        `gorm:"default:true" json:"is_available_for_sale"`
	Images             StringArray `gorm:"type:text" json:"images"`

	// Relationships
	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

func (ClothingItem) TableName() string {
	return "clothing_items"
}
