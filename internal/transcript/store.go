// Package transcript keeps the ordered chat history for one session.
package transcript

import "sync"

// Greeting is the assistant message every fresh transcript starts with.
const Greeting = "How can I help you?"

// Role identifies who produced an entry.
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
)

// Entry is one chat message.
type Entry struct {
	Role    Role
	Content string
}

// Store is an in-memory, append-only transcript. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns a store already reset to the greeting.
func New() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Append adds an entry at the end.
func (s *Store) Append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// Reset discards the history and leaves only the greeting.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []Entry{{Role: Assistant, Content: Greeting}}
}

// All returns a copy of the entries in insertion order.
func (s *Store) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
