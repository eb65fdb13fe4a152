package transcriptstore

import (
	"context"
	"sync"
)

var _ Store = (*MemStore)(nil)

// MemStore keeps session transcripts in memory. It is the default when
// no database is configured, and the test double everywhere else.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string][]Entry
}

func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string][]Entry)}
}

func (s *MemStore) Append(_ context.Context, sessionID string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], e)
	return nil
}

func (s *MemStore) Session(_ context.Context, sessionID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.sessions[sessionID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemStore) Close() {}
