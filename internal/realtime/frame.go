package realtime

import (
	"encoding/json"
	"strings"
)

// Client and server events.
const (
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
	EventMarkRead    = "markRead"

	EventReceiveMessage     = "receiveMessage"
	EventUserTyping         = "userTyping"
	EventMessagesRead       = "messagesRead"
	EventUserOnline         = "userOnline"
	EventUserOffline        = "userOffline"
	EventRegistrationStatus = "registrationStatus"
	EventError              = "error"
)

// Frame is the wire shape of every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

// roomID accepts either a bare JSON string or an object with roomId.
func roomID(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var p roomPayload
	if err := json.Unmarshal(data, &p); err == nil {
		return strings.TrimSpace(p.RoomID)
	}
	return ""
}

type sendMessagePayload struct {
	RoomID     string `json:"roomId"`
	Content    string `json:"content"`
	ReceiverID string `json:"receiverId"`
}

type typingPayload struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

type presencePayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

type userTypingPayload struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	IsTyping bool   `json:"isTyping"`
}

type messagesReadPayload struct {
	RoomID string `json:"roomId"`
	ReadBy string `json:"readBy"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// RegistrationStatusPayload is pushed to a user's private room when an admin decides on a registration.
type RegistrationStatusPayload struct {
	CompetitionID string `json:"competitionId"`
	Title         string `json:"title,omitempty"`
	Status        string `json:"status"`
}
