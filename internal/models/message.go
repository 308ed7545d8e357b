package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is a chat message stored under a free-form room key.
type Message struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SenderID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Sender     *User      `gorm:"foreignKey:SenderID"`
	ReceiverID *uuid.UUID `gorm:"type:uuid;index"`
	Receiver   *User      `gorm:"foreignKey:ReceiverID"`
	ChatRoom   string     `gorm:"not null;index:idx_messages_room_created,priority:1"`
	Content    string     `gorm:"type:text;not null"`
	Read       bool       `gorm:"column:is_read;not null;default:false"`
	CreatedAt  time.Time  `gorm:"index:idx_messages_room_created,priority:2"`
}

// MarshalJSON exposes only public profile fields of the participants.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         uuid.UUID  `json:"id"`
		SenderID   uuid.UUID  `json:"senderId"`
		Sender     *Profile   `json:"sender,omitempty"`
		ReceiverID *uuid.UUID `json:"receiverId,omitempty"`
		Receiver   *Profile   `json:"receiver,omitempty"`
		ChatRoom   string     `json:"chatRoom"`
		Content    string     `json:"content"`
		Read       bool       `json:"read"`
		CreatedAt  time.Time  `json:"createdAt"`
	}{
		ID:         m.ID,
		SenderID:   m.SenderID,
		Sender:     m.Sender.Profile(),
		ReceiverID: m.ReceiverID,
		Receiver:   m.Receiver.Profile(),
		ChatRoom:   m.ChatRoom,
		Content:    m.Content,
		Read:       m.Read,
		CreatedAt:  m.CreatedAt,
	})
}

// PrivateRoom returns the room every connection of userID joins automatically.
func PrivateRoom(userID uuid.UUID) string {
	return "user_" + userID.String()
}
