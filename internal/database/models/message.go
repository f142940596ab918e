package models

import "github.com/google/uuid"

// Message is immutable once created except for the read flag.
type Message struct {
	Base
	SenderID   uuid.UUID `gorm:"type:uuid;index;not null" json:"sender_id"`
	ReceiverID uuid.UUID `gorm:"type:uuid;index;not null" json:"receiver_id"`
	Content    string    `gorm:"not null" json:"content"`
	Read       bool      `gorm:"default:false" json:"read"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"-"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}
