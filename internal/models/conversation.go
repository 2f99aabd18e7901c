package models

import "time"

// Conversation groups all messages exchanged between exactly two users.
// The pair is stored normalized (user1_id < user2_id) so the unordered
// pair maps to at most one row.
type Conversation struct {
	ID        int       `db:"id" json:"id"`
	User1ID   int       `db:"user1_id" json:"user1_id"`
	User2ID   int       `db:"user2_id" json:"user2_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ConversationSummary is the API-friendly sidebar view of a conversation
// from one participant's perspective.
type ConversationSummary struct {
	ConversationID int       `db:"conversation_id" json:"conversation_id"`
	PeerID         int       `db:"peer_id" json:"peer_id"`
	LastMessage    string    `db:"last_message" json:"last_message"`
	LastMessageAt  time.Time `db:"last_message_at" json:"last_message_time"`
}
