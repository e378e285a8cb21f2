// Package conversation provides the durable conversation log.
//
// The log is strictly append-only: messages are immutable once written,
// ordering is insertion order, and the only destructive operation is a
// full Clear (used by conversation reset). The orchestrator treats a
// successful Append as its durability barrier; failures abort the
// current turn rather than being retried.
package conversation

import (
	"sync"
	"time"
)

// Message roles. The log only ever holds these three; synthetic tool
// observations are recorded with RoleUser so the model sees them as
// incoming context on the next inference call.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single immutable entry in the conversation log.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
	// Attachments holds opaque references (file paths, content IDs) that
	// accompany the message. Most messages have none.
	Attachments []string  `json:"attachments,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store is the durability contract for one conversation.
type Store interface {
	// Append durably writes the message before returning.
	Append(m Message) error
	// Recent returns up to limit messages in chronological (oldest-first)
	// order, regardless of the underlying retrieval order.
	Recent(limit int) ([]Message, error)
	// Clear removes all persisted messages. It does not re-insert a
	// system message; re-seeding is the caller's responsibility.
	Clear() error
	// Count reports the number of persisted messages.
	Count() (int, error)
}

// MemoryStore is an in-memory Store for CLI one-shots and tests.
// Nothing to persist across restarts in those modes.
type MemoryStore struct {
	mu       sync.Mutex
	messages []Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append records the message in memory.
func (s *MemoryStore) Append(m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	s.messages = append(s.messages, m)
	return nil
}

// Recent returns the last limit messages, oldest first.
func (s *MemoryStore) Recent(limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.messages)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Message, n)
	copy(out, s.messages[len(s.messages)-n:])
	return out, nil
}

// Clear discards all messages.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	return nil
}

// Count reports the number of stored messages.
func (s *MemoryStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages), nil
}
