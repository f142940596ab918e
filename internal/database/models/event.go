package models

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Base
	CreatorID uuid.UUID `gorm:"type:uuid;index;not null" json:"creator_id"`
	// OrganizationID scopes the event to a club; nil means open to all.
	OrganizationID *uuid.UUID `gorm:"type:uuid;index" json:"organization_id,omitempty"`
	Title          string     `gorm:"not null" json:"title"`
	Description    string     `json:"description,omitempty"`
	EventDate      time.Time  `gorm:"not null;index" json:"event_date"`
	Location       string     `json:"location,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`

	// Relationships
	Creator      *User         `gorm:"foreignKey:CreatorID" json:"-"`
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Event) TableName() string {
	return "events"
}

// EventListing attaches a clothing item to an event for a pop-up-shop
// style listing.
type EventListing struct {
	Base
	EventID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_event_item;not null" json:"event_id"`
	ItemID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_event_item;not null" json:"item_id"`

	Event *Event        `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	Item  *ClothingItem `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item,omitempty"`
}

func (EventListing) TableName() string {
	return "event_listings"
}
