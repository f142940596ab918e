package models

import "github.com/google/uuid"

type Organization struct {
	Base
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`
	Name    string    `gorm:"uniqueIndex;not null" json:"name"`

	// Relationships
	Owner   *User        `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members []Membership `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}

// Membership links a user to an organization. The (user, organization)
// pair is unique.
type Membership struct {
	Base
	UserID         uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_member_user_org;not null" json:"user_id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_member_user_org;not null" json:"organization_id"`

	User         *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Membership) TableName() string {
	return "members"
}
