package models

import "time"

// Message represents a single text message inside a 1:1 conversation.
// Body keeps the wire name "message" on the JSON surface.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ConversationID int       `db:"conversation_id" json:"conversation_id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	ReceiverID     int       `db:"receiver_id" json:"receiver_id"`
	Body           string    `db:"body" json:"message"`
	IsEdited       bool      `db:"is_edited" json:"is_edited"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Socket event types pushed to clients.
const (
	EventNewMessage     = "newMessage"
	EventMessageUpdated = "messageUpdated"
	EventMessageDeleted = "messageDeleted"
	EventOnlineUsers    = "onlineUsers"
)

// ChatEvent is the tagged envelope broadcast through websockets.
// Exactly one of the optional fields is set, depending on Type.
type ChatEvent struct {
	Type        string   `json:"type"`
	Message     *Message `json:"message,omitempty"`
	MessageID   int      `json:"message_id,omitempty"`
	OnlineUsers []int    `json:"online_users,omitempty"`
}
