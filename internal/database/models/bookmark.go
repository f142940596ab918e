package models

import "github.com/google/uuid"

// Bookmark is a user's saved reference to a listing. The (user, item)
// pair is unique so add/remove behave as an idempotent toggle.
type Bookmark struct {
	Base
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_bookmark_user_item;not null" json:"user_id"`
	ItemID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_bookmark_user_item;not null" json:"clothing_item_id"`

	User *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Item *ClothingItem `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item,omitempty"`
}

func (Bookmark) TableName() string {
	return "bookmarks"
}
