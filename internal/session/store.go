// Package session keeps conversation sessions in process memory.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"education-agent/internal/domain"
)

// entry guards one session. lock is a one-slot channel so waiting for it can
// be abandoned when the caller's context ends.
type entry struct {
	lock    chan struct{}
	session *domain.ConversationSession
}

func newEntry(id string) *entry {
	return &entry{
		lock:    make(chan struct{}, 1),
		session: domain.NewConversationSession(id),
	}
}

func (e *entry) acquire(ctx context.Context) error {
	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry) release() {
	<-e.lock
}

// MemoryStore maps session ids to sessions. Mutations of the same session are
// serialized; different sessions never wait on each other beyond the map
// lookup. Entries live until the process exits.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*entry)}
}

func (s *MemoryStore) entry(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		e = newEntry(id)
		s.entries[id] = e
	}
	return e
}

// Update runs fn with exclusive access to the session for id, creating an
// empty session first if none exists. Changes fn makes are kept even when it
// returns an error.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*domain.ConversationSession) error) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("session: id must not be empty")
	}
	e := s.entry(id)
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()
	return fn(e.session)
}

// Reset replaces the session for id with an empty one at the greeting stage.
// It waits for any in-flight Update on the same id.
func (s *MemoryStore) Reset(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("session: id must not be empty")
	}
	e := s.entry(id)
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()
	e.session = domain.NewConversationSession(id)
	return nil
}

// Get returns a copy of the session for id.
func (s *MemoryStore) Get(ctx context.Context, id string) (domain.ConversationSession, bool, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return domain.ConversationSession{}, false, nil
	}
	if err := e.acquire(ctx); err != nil {
		return domain.ConversationSession{}, false, err
	}
	defer e.release()
	return e.session.Clone(), true, nil
}

// Len reports how many sessions are held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
