package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Create(ctx context.Context, conversationID int, senderID int, receiverID int, body string) (models.Message, error)
	Get(ctx context.Context, messageID int) (models.Message, error)
	UpdateBody(ctx context.Context, messageID int, body string) (models.Message, error)
	Delete(ctx context.Context, messageID int) error
	HistoryPage(ctx context.Context, conversationID int, page int, pageSize int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create appends a message to a conversation.
func (r *MessageRepo) Create(ctx context.Context, conversationID int, senderID int, receiverID int, body string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, receiver_id, body) VALUES ($1, $2, $3, $4)
            RETURNING id, conversation_id, sender_id, receiver_id, body, is_edited, created_at, updated_at`,
		conversationID, senderID, receiverID, body).
		Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID, &msg.Body, &msg.IsEdited, &msg.CreatedAt, &msg.UpdatedAt)
	return msg, err
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, conversation_id, sender_id, receiver_id, body, is_edited, created_at, updated_at FROM messages WHERE id=$1`,
		messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UpdateBody replaces the message body, marks it edited and refreshes updated_at.
func (r *MessageRepo) UpdateBody(ctx context.Context, messageID int, body string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`UPDATE messages SET body=$2, is_edited=TRUE, updated_at=NOW() WHERE id=$1
            RETURNING id, conversation_id, sender_id, receiver_id, body, is_edited, created_at, updated_at`,
		messageID, body).
		Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID, &msg.Body, &msg.IsEdited, &msg.CreatedAt, &msg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// Delete removes a message permanently. The conversation's message list is
// the FK relation, so pruning is implicit.
func (r *MessageRepo) Delete(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// HistoryPage returns one page of a conversation's history. Page 1 is the
// most recent block; each following page walks further back in time. The
// page itself is ordered ascending so clients can prepend it wholesale.
func (r *MessageRepo) HistoryPage(ctx context.Context, conversationID int, page int, pageSize int) ([]models.Message, error) {
	offset := (page - 1) * pageSize
	query := `SELECT * FROM (
            SELECT id, conversation_id, sender_id, receiver_id, body, is_edited, created_at, updated_at
            FROM messages
            WHERE conversation_id=$1
            ORDER BY created_at DESC, id DESC
            LIMIT $2 OFFSET $3
        ) block ORDER BY created_at ASC, id ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, conversationID, pageSize, offset)
	return msgs, err
}
