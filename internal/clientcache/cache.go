package clientcache

import (
	"sync"

	"messenger-service/internal/models"
)

// Summary is the sidebar view of one peer's conversation: the latest
// message plus unread bookkeeping. It is purely client state.
type Summary struct {
	PeerID        int    `json:"peer_id"`
	LastMessage   string `json:"last_message"`
	LastMessageAt string `json:"last_message_time"`
	UnreadCount   int    `json:"unread_count"`
	HasNewMessage bool   `json:"has_new_message"`
}

// Cache reconciles paginated history fetches, the local user's own REST
// results and live push events into one ordered, id-deduplicated message
// sequence per peer. Updates and deletes are id-keyed and idempotent;
// appends are deduplicated so a replayed push cannot double-insert.
type Cache struct {
	mu sync.Mutex

	userID     int
	activePeer int

	messages  map[int][]models.Message // peer id -> ascending sequence
	present   map[int]map[int]struct{} // peer id -> message id set
	summaries map[int]*Summary
	hasMore   map[int]bool
	page      map[int]int
}

// New creates an empty cache for the local user.
func New(userID int) *Cache {
	return &Cache{
		userID:    userID,
		messages:  make(map[int][]models.Message),
		present:   make(map[int]map[int]struct{}),
		summaries: make(map[int]*Summary),
		hasMore:   make(map[int]bool),
		page:      make(map[int]int),
	}
}

// OpenConversation selects a peer for viewing: its unread counter resets
// and its new-message flag clears.
func (c *Cache) OpenConversation(peerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activePeer = peerID
	if s, ok := c.summaries[peerID]; ok {
		s.UnreadCount = 0
		s.HasNewMessage = false
	}
}

// ActivePeer returns the peer whose thread is currently open, 0 if none.
func (c *Cache) ActivePeer() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activePeer
}

// ApplyHistoryPage merges a fetched page into the peer's sequence. Page 1
// replaces the sequence wholesale; later pages are prepended since they
// hold strictly older messages. A page shorter than pageSize ends
// pagination for the peer.
func (c *Cache) ApplyHistoryPage(peerID int, page int, pageSize int, msgs []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if page <= 1 {
		c.messages[peerID] = nil
		c.present[peerID] = make(map[int]struct{})
	}

	fresh := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if c.seen(peerID, m.ID) {
			continue
		}
		c.markSeen(peerID, m.ID)
		fresh = append(fresh, m)
	}

	if page <= 1 {
		c.messages[peerID] = fresh
	} else {
		c.messages[peerID] = append(fresh, c.messages[peerID]...)
	}
	c.hasMore[peerID] = len(msgs) == pageSize
	c.page[peerID] = page
}

// ApplyLocalSend appends the message returned by the local user's own send.
// The peer's summary updates but its unread count does not: it is the
// local user's outbound message.
func (c *Cache) ApplyLocalSend(msg models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	peerID := msg.ReceiverID
	if c.seen(peerID, msg.ID) {
		return
	}
	c.markSeen(peerID, msg.ID)
	c.messages[peerID] = append(c.messages[peerID], msg)

	s := c.summary(peerID)
	s.LastMessage = msg.Body
	s.LastMessageAt = msg.CreatedAt.Format(timeLayout)
}

// ApplyEvent folds one live push event into the cache. Events target
// messages by id, never by position; updates and deletes for unknown ids
// are no-ops.
func (c *Cache) ApplyEvent(ev models.ChatEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case models.EventNewMessage:
		if ev.Message == nil {
			return
		}
		c.applyInbound(*ev.Message)
	case models.EventMessageUpdated:
		if ev.Message == nil {
			return
		}
		c.replaceByID(*ev.Message)
	case models.EventMessageDeleted:
		c.removeByID(ev.MessageID)
	}
}

func (c *Cache) applyInbound(msg models.Message) {
	// The server never echoes a send back to its sender, but a replayed
	// push must still not double-insert.
	peerID := msg.SenderID
	if peerID == c.userID {
		peerID = msg.ReceiverID
	}
	if c.seen(peerID, msg.ID) {
		return
	}
	c.markSeen(peerID, msg.ID)
	c.messages[peerID] = append(c.messages[peerID], msg)

	s := c.summary(peerID)
	s.LastMessage = msg.Body
	s.LastMessageAt = msg.CreatedAt.Format(timeLayout)
	if msg.SenderID != c.userID && peerID != c.activePeer {
		s.UnreadCount++
		s.HasNewMessage = true
	}
}

func (c *Cache) replaceByID(msg models.Message) {
	for peerID, seq := range c.messages {
		for i := range seq {
			if seq[i].ID == msg.ID {
				c.messages[peerID][i] = msg
				return
			}
		}
	}
}

func (c *Cache) removeByID(messageID int) {
	for peerID, seq := range c.messages {
		for i := range seq {
			if seq[i].ID != messageID {
				continue
			}
			c.messages[peerID] = append(seq[:i], seq[i+1:]...)
			delete(c.present[peerID], messageID)
			return
		}
	}
}

// Messages returns a copy of the peer's ordered sequence.
func (c *Cache) Messages(peerID int) []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.messages[peerID]
	out := make([]models.Message, len(seq))
	copy(out, seq)
	return out
}

// Summary returns a copy of the peer's summary, reporting whether one exists.
func (c *Cache) Summary(peerID int) (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.summaries[peerID]
	if !ok {
		return Summary{}, false
	}
	return *s, true
}

// HasMore reports whether older history remains for the peer.
func (c *Cache) HasMore(peerID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore[peerID]
}

// Page returns the last fetched page number for the peer, 0 if none.
func (c *Cache) Page(peerID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page[peerID]
}

// Snapshot returns all summaries for persistence across reloads.
func (c *Cache) Snapshot() []Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Summary, 0, len(c.summaries))
	for _, s := range c.summaries {
		out = append(out, *s)
	}
	return out
}

// Restore seeds summaries from a prior Snapshot. Message sequences are not
// restored; they are refetched per thread.
func (c *Cache) Restore(snapshot []Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range snapshot {
		copied := s
		c.summaries[s.PeerID] = &copied
	}
}

func (c *Cache) seen(peerID, messageID int) bool {
	ids, ok := c.present[peerID]
	if !ok {
		return false
	}
	_, seen := ids[messageID]
	return seen
}

func (c *Cache) markSeen(peerID, messageID int) {
	if _, ok := c.present[peerID]; !ok {
		c.present[peerID] = make(map[int]struct{})
	}
	c.present[peerID][messageID] = struct{}{}
}

func (c *Cache) summary(peerID int) *Summary {
	s, ok := c.summaries[peerID]
	if !ok {
		s = &Summary{PeerID: peerID}
		c.summaries[peerID] = s
	}
	return s
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
