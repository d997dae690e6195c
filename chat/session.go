// Package chat owns per-session conversation state and the chat turn
// workflow that merges at most one context source into the completion
// prompt.
package chat

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/fabfab/ragchat/llm"
)

// ErrSessionClosed rejects turns against a session that has been ended.
var ErrSessionClosed = errors.New("the chat session has ended")

const systemInstruction = "You are a helpful assistant."

// Conversation is the per-session record: an append-only message sequence
// seeded with the system instruction, the attached document ids, and the
// active flag. CLOSED is terminal.
type Conversation struct {
	Messages    []llm.Message
	DocumentIDs []uuid.UUID
	Active      bool
}

func newConversation() *Conversation {
	return &Conversation{
		Messages: []llm.Message{{Role: llm.RoleSystem, Content: systemInstruction}},
		Active:   true,
	}
}

func (c *Conversation) Append(role, content string) {
	c.Messages = append(c.Messages, llm.Message{Role: role, Content: content})
}

func (c *Conversation) AttachDocument(docID uuid.UUID) {
	for _, existing := range c.DocumentIDs {
		if existing == docID {
			return
		}
	}
	c.DocumentIDs = append(c.DocumentIDs, docID)
}

func (c *Conversation) DetachDocument(docID uuid.UUID) {
	for i, existing := range c.DocumentIDs {
		if existing == docID {
			c.DocumentIDs = append(c.DocumentIDs[:i], c.DocumentIDs[i+1:]...)
			return
		}
	}
}

func (c *Conversation) HasDocuments() bool {
	return len(c.DocumentIDs) > 0
}

// SessionStore maps session ids to conversations. Sessions are created
// lazily on first reference and removed only by explicit Delete or Reset.
// Concurrent turns for different session ids are safe; the same session is
// expected to be driven by one client at a time.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Conversation
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Conversation)}
}

func (s *SessionStore) GetOrCreate(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[id]
	if !ok {
		conv = newConversation()
		s.sessions[id] = conv
	}
	return conv
}

func (s *SessionStore) Get(id string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.sessions[id]
	return conv, ok
}

// Close marks a session terminal; subsequent turns are rejected. Sessions
// are created lazily on first reference, and closing one is a reference, so
// an unseen id yields a session that is already closed.
func (s *SessionStore) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[id]
	if !ok {
		conv = newConversation()
		s.sessions[id] = conv
	}
	conv.Active = false
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

func (s *SessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*Conversation)
}
