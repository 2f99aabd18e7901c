package service

import (
	"context"
	"errors"
	"strings"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

var (
	// ErrValidation marks a missing or empty required field.
	ErrValidation = errors.New("required field missing or empty")
	// ErrForbidden marks a mutation attempted by someone other than the sender.
	ErrForbidden = errors.New("only the sender may modify this message")
)

// Dispatcher pushes events to a user's live connection. Delivery is
// best-effort; the return value reports whether a push was attempted.
type Dispatcher interface {
	SendToUser(userID int, event models.ChatEvent) bool
}

// MessageService owns the message lifecycle: it persists mutations and
// fans out realtime events to the affected participants.
type MessageService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	dispatcher    Dispatcher
}

// NewMessageService builds a MessageService.
func NewMessageService(conversations repositories.ConversationRepository, messages repositories.MessageRepository, dispatcher Dispatcher) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		dispatcher:    dispatcher,
	}
}

// Send stores a new message, creating the conversation on first contact,
// and pushes a newMessage event to the receiver if online. The sender is
// deliberately not pushed to: its client applies the returned message
// from the response, and a second copy would double-insert.
func (s *MessageService) Send(ctx context.Context, senderID int, receiverID int, body string) (models.Message, error) {
	if senderID <= 0 || receiverID <= 0 || strings.TrimSpace(body) == "" {
		return models.Message{}, ErrValidation
	}
	if senderID == receiverID {
		return models.Message{}, ErrValidation
	}

	conv, err := s.conversations.FindOrCreate(ctx, senderID, receiverID)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := s.messages.Create(ctx, conv.ID, senderID, receiverID, body)
	if err != nil {
		return models.Message{}, err
	}

	s.dispatcher.SendToUser(receiverID, models.ChatEvent{Type: models.EventNewMessage, Message: &msg})
	return msg, nil
}

// Edit replaces a message body. Only the original sender may edit; both
// participants are pushed the updated message since either may be viewing
// the thread.
func (s *MessageService) Edit(ctx context.Context, messageID int, editorID int, newBody string) (models.Message, error) {
	if messageID <= 0 || strings.TrimSpace(newBody) == "" {
		return models.Message{}, ErrValidation
	}

	existing, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if existing.SenderID != editorID {
		return models.Message{}, ErrForbidden
	}

	updated, err := s.messages.UpdateBody(ctx, messageID, newBody)
	if err != nil {
		return models.Message{}, err
	}

	event := models.ChatEvent{Type: models.EventMessageUpdated, Message: &updated}
	s.dispatcher.SendToUser(updated.SenderID, event)
	s.dispatcher.SendToUser(updated.ReceiverID, event)
	return updated, nil
}

// Delete removes a message permanently. Only the original sender may
// delete; both participants are pushed the deleted message id.
func (s *MessageService) Delete(ctx context.Context, messageID int, requesterID int) error {
	if messageID <= 0 {
		return ErrValidation
	}

	existing, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if existing.SenderID != requesterID {
		return ErrForbidden
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		return err
	}

	event := models.ChatEvent{Type: models.EventMessageDeleted, MessageID: messageID}
	s.dispatcher.SendToUser(existing.SenderID, event)
	s.dispatcher.SendToUser(existing.ReceiverID, event)
	return nil
}

// FetchHistory returns one page of the conversation between userID and
// peerID. Page 1 is the newest block; a page shorter than pageSize means
// no further history. A pair with no conversation yet yields an empty page.
func (s *MessageService) FetchHistory(ctx context.Context, userID int, peerID int, page int, pageSize int) ([]models.Message, bool, error) {
	if userID <= 0 || peerID <= 0 {
		return nil, false, ErrValidation
	}
	if page < 1 {
		page = 1
	}

	conv, err := s.conversations.GetByParticipants(ctx, userID, peerID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return []models.Message{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	msgs, err := s.messages.HistoryPage(ctx, conv.ID, page, pageSize)
	if err != nil {
		return nil, false, err
	}
	return msgs, len(msgs) == pageSize, nil
}

// ListConversations returns the caller's conversation summaries, most
// recently active first.
func (s *MessageService) ListConversations(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	return s.conversations.ListSummaries(ctx, userID)
}
