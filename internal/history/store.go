// Package history keeps per-conversation message logs. The core store is
// in-memory and bounded; it does not outlive the process. Durable transcripts
// for the dashboard are the TranscriptStore's job.
package history

import (
	"sync"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is a bounded per-conversation message log keyed by conversation id.
// Once a conversation reaches cap entries the oldest are evicted first.
type Store struct {
	mu  sync.Mutex
	cap int
	log map[string][]Message
}

// NewStore creates a Store with the given per-conversation cap.
func NewStore(cap int) *Store {
	if cap <= 0 {
		cap = 20
	}
	return &Store{
		cap: cap,
		log: make(map[string][]Message),
	}
}

// Append adds a message to the conversation, evicting oldest entries so the
// length never exceeds the cap. When the new message is a user turn that
// would directly follow another user turn, the earlier user turn is dropped
// first; history must strictly alternate user/assistant.
func (s *Store) Append(conversationID string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.log[conversationID]
	if n := len(msgs); n > 0 && msg.Role == RoleUser && msgs[n-1].Role == RoleUser {
		msgs = msgs[:n-1]
	}
	msgs = append(msgs, msg)
	if overflow := len(msgs) - s.cap; overflow > 0 {
		msgs = append([]Message(nil), msgs[overflow:]...)
	}
	s.log[conversationID] = msgs
}

// Snapshot returns a copy of the conversation's messages.
func (s *Store) Snapshot(conversationID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.log[conversationID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Drop removes a conversation entirely.
func (s *Store) Drop(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.log, conversationID)
}

// Len reports the current length of one conversation.
func (s *Store) Len(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log[conversationID])
}
