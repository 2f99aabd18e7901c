package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, userID int, peerID int) (models.Conversation, error)
	GetByParticipants(ctx context.Context, userID int, peerID int) (models.Conversation, error)
	ListSummaries(ctx context.Context, userID int) ([]models.ConversationSummary, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// FindOrCreate resolves the conversation for an unordered user pair,
// creating it if absent. The upsert is a single statement so concurrent
// first messages from both ends converge on one row.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, userID int, peerID int) (models.Conversation, error) {
	if userID == peerID {
		return models.Conversation{}, errors.New("cannot create conversation with self")
	}
	user1, user2 := orderPair(userID, peerID)

	var conv models.Conversation
	query := `INSERT INTO conversations (user1_id, user2_id) VALUES ($1, $2)
        ON CONFLICT (user1_id, user2_id) DO UPDATE SET user1_id = EXCLUDED.user1_id
        RETURNING id, user1_id, user2_id, created_at`
	err := r.db.QueryRowxContext(ctx, query, user1, user2).
		Scan(&conv.ID, &conv.User1ID, &conv.User2ID, &conv.CreatedAt)
	return conv, err
}

// GetByParticipants fetches the conversation for a pair without creating it.
func (r *ConversationRepo) GetByParticipants(ctx context.Context, userID int, peerID int) (models.Conversation, error) {
	user1, user2 := orderPair(userID, peerID)

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT id, user1_id, user2_id, created_at FROM conversations WHERE user1_id=$1 AND user2_id=$2`,
		user1, user2)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListSummaries returns the user's conversations with their latest message,
// most recently active first. Conversations without messages are omitted.
func (r *ConversationRepo) ListSummaries(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	query := `SELECT c.id AS conversation_id,
            CASE WHEN c.user1_id=$1 THEN c.user2_id ELSE c.user1_id END AS peer_id,
            m.body AS last_message,
            m.created_at AS last_message_at
        FROM conversations c
        JOIN LATERAL (
            SELECT body, created_at FROM messages
            WHERE conversation_id = c.id
            ORDER BY created_at DESC, id DESC
            LIMIT 1
        ) m ON TRUE
        WHERE c.user1_id=$1 OR c.user2_id=$1
        ORDER BY m.created_at DESC`
	var result []models.ConversationSummary
	err := r.db.SelectContext(ctx, &result, query, userID)
	return result, err
}

func orderPair(a, b int) (int, int) {
	pair := []int{a, b}
	sort.Ints(pair)
	return pair[0], pair[1]
}
