package clientcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

func msg(id, senderID, receiverID int, body string) models.Message {
	return models.Message{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, id, 0, time.UTC),
	}
}

func ids(msgs []models.Message) []int {
	out := make([]int, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestPageOneReplacesWholesale(t *testing.T) {
	c := New(1)
	c.ApplyHistoryPage(2, 1, 20, []models.Message{msg(10, 2, 1, "old"), msg(11, 1, 2, "older")})
	c.ApplyHistoryPage(2, 1, 20, []models.Message{msg(12, 2, 1, "fresh")})

	assert.Equal(t, []int{12}, ids(c.Messages(2)))
	assert.False(t, c.HasMore(2))
}

func TestOlderPagePrependsWithoutOverlap(t *testing.T) {
	c := New(1)
	pageOne := []models.Message{msg(21, 2, 1, "c"), msg(22, 1, 2, "d")}
	pageTwo := []models.Message{msg(19, 2, 1, "a"), msg(20, 1, 2, "b")}

	c.ApplyHistoryPage(2, 1, 2, pageOne)
	require.True(t, c.HasMore(2))
	c.ApplyHistoryPage(2, 2, 2, pageTwo)

	assert.Equal(t, []int{19, 20, 21, 22}, ids(c.Messages(2)))
	assert.Equal(t, 2, c.Page(2))
}

func TestPrependDeduplicatesRepeatedPage(t *testing.T) {
	c := New(1)
	pageOne := []models.Message{msg(21, 2, 1, "c")}

	c.ApplyHistoryPage(2, 1, 1, pageOne)
	c.ApplyHistoryPage(2, 2, 1, pageOne)

	assert.Equal(t, []int{21}, ids(c.Messages(2)))
}

func TestLocalSendAppendsWithoutUnread(t *testing.T) {
	c := New(1)
	c.ApplyLocalSend(msg(30, 1, 2, "hi"))

	assert.Equal(t, []int{30}, ids(c.Messages(2)))
	s, ok := c.Summary(2)
	require.True(t, ok)
	assert.Equal(t, "hi", s.LastMessage)
	assert.Zero(t, s.UnreadCount)
	assert.False(t, s.HasNewMessage)
}

func TestInboundMessageIncrementsUnreadForClosedThread(t *testing.T) {
	c := New(1)
	c.ApplyEvent(models.ChatEvent{Type: models.EventNewMessage, Message: ptr(msg(31, 2, 1, "yo"))})
	c.ApplyEvent(models.ChatEvent{Type: models.EventNewMessage, Message: ptr(msg(32, 2, 1, "there"))})

	s, ok := c.Summary(2)
	require.True(t, ok)
	assert.Equal(t, 2, s.UnreadCount)
	assert.True(t, s.HasNewMessage)
	assert.Equal(t, "there", s.LastMessage)
}

func TestInboundMessageForOpenThreadAppendsWithoutUnread(t *testing.T) {
	c := New(1)
	c.OpenConversation(2)
	c.ApplyEvent(models.ChatEvent{Type: models.EventNewMessage, Message: ptr(msg(33, 2, 1, "yo"))})

	assert.Equal(t, []int{33}, ids(c.Messages(2)))
	s, _ := c.Summary(2)
	assert.Zero(t, s.UnreadCount)
}

func TestOpenConversationResetsUnread(t *testing.T) {
	c := New(1)
	c.ApplyEvent(models.ChatEvent{Type: models.EventNewMessage, Message: ptr(msg(34, 2, 1, "yo"))})
	c.OpenConversation(2)

	s, _ := c.Summary(2)
	assert.Zero(t, s.UnreadCount)
	assert.False(t, s.HasNewMessage)
}

func TestDuplicateNewMessageIsIdempotent(t *testing.T) {
	c := New(1)
	event := models.ChatEvent{Type: models.EventNewMessage, Message: ptr(msg(35, 2, 1, "once"))}
	c.ApplyEvent(event)
	c.ApplyEvent(event)

	assert.Equal(t, []int{35}, ids(c.Messages(2)))
	s, _ := c.Summary(2)
	assert.Equal(t, 1, s.UnreadCount)
}

func TestMessageUpdatedReplacesInPlace(t *testing.T) {
	c := New(1)
	c.ApplyHistoryPage(2, 1, 20, []models.Message{msg(40, 1, 2, "hi"), msg(41, 2, 1, "yo")})

	edited := msg(40, 1, 2, "hello")
	edited.IsEdited = true
	c.ApplyEvent(models.ChatEvent{Type: models.EventMessageUpdated, Message: &edited})
	c.ApplyEvent(models.ChatEvent{Type: models.EventMessageUpdated, Message: &edited}) // replay is a no-op

	got := c.Messages(2)
	assert.Equal(t, []int{40, 41}, ids(got))
	assert.Equal(t, "hello", got[0].Body)
	assert.True(t, got[0].IsEdited)
}

func TestMessageUpdatedUnknownIDIsNoop(t *testing.T) {
	c := New(1)
	c.ApplyEvent(models.ChatEvent{Type: models.EventMessageUpdated, Message: ptr(msg(99, 2, 1, "ghost"))})
	assert.Empty(t, c.Messages(2))
}

func TestMessageDeletedRemovesByID(t *testing.T) {
	c := New(1)
	c.ApplyHistoryPage(2, 1, 20, []models.Message{msg(50, 1, 2, "a"), msg(51, 2, 1, "b"), msg(52, 1, 2, "c")})

	c.ApplyEvent(models.ChatEvent{Type: models.EventMessageDeleted, MessageID: 51})
	assert.Equal(t, []int{50, 52}, ids(c.Messages(2)))

	// replay and unknown ids are no-ops
	c.ApplyEvent(models.ChatEvent{Type: models.EventMessageDeleted, MessageID: 51})
	c.ApplyEvent(models.ChatEvent{Type: models.EventMessageDeleted, MessageID: 999})
	assert.Equal(t, []int{50, 52}, ids(c.Messages(2)))
}

func TestDeletedIDCanReappearViaHistory(t *testing.T) {
	c := New(1)
	c.ApplyHistoryPage(2, 1, 20, []models.Message{msg(60, 1, 2, "a")})
	c.ApplyEvent(models.ChatEvent{Type: models.EventMessageDeleted, MessageID: 60})

	c.ApplyHistoryPage(2, 1, 20, []models.Message{msg(60, 1, 2, "a")})
	assert.Equal(t, []int{60}, ids(c.Messages(2)))
}

func TestSnapshotRestoreRoundTripsSummaries(t *testing.T) {
	c := New(1)
	c.ApplyEvent(models.ChatEvent{Type: models.EventNewMessage, Message: ptr(msg(70, 2, 1, "yo"))})

	restored := New(1)
	restored.Restore(c.Snapshot())

	s, ok := restored.Summary(2)
	require.True(t, ok)
	assert.Equal(t, "yo", s.LastMessage)
	assert.Equal(t, 1, s.UnreadCount)
}

func ptr(m models.Message) *models.Message { return &m }
