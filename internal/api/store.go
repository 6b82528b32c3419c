package api

import (
	"context"
	"errors"
	"sync"

	"github.com/samcharles93/cinder/internal/inference"
)

// sessionEntry pairs a session with the plumbing the HTTP layer feeds it
// through. mu serializes turns on the session.
type sessionEntry struct {
	mu      sync.Mutex
	session *inference.Session
	input   *queuedInput
	sink    *inference.RecordingSink
}

// SessionStore keeps live sessions keyed by id.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
	}
}

func (s *SessionStore) Put(entry *sessionEntry) string {
	id := entry.session.ID.String()
	s.mu.Lock()
	s.sessions[id] = entry
	s.mu.Unlock()
	return id
}

func (s *SessionStore) Get(id string) (*sessionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	return entry, ok
}

func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

var errNoInput = errors.New("no input queued")

// queuedInput hands the body of a turn request to the session. The handler
// pushes exactly one line before each RunTurn.
type queuedInput struct {
	line    string
	pending bool
}

func (q *queuedInput) Push(line string) {
	q.line = line
	q.pending = true
}

func (q *queuedInput) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !q.pending {
		return "", errNoInput
	}
	q.pending = false
	return q.line, nil
}
