package statsclient

import "sync"

// CredentialStore holds the bearer token between requests.
type CredentialStore interface {
	Get() (string, bool)
	Set(token string)
	Clear()
	// ClearIf discards the held token only if it equals token, so a stale
	// rejection cannot throw away a newer credential.
	ClearIf(token string) bool
}

// MemoryStore keeps the token in process memory. It is never persisted.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func (s *MemoryStore) ClearIf(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || s.token != token {
		return false
	}
	s.token = ""
	return true
}
