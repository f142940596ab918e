package models

type User struct {
	Base
	Email             string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash      string `gorm:"not null" json:"-"`
	Username          string `gorm:"uniqueIndex;not null" json:"username"`
	FullName          string `json:"full_name"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

func (User) TableName() string {
	return "users"
}
