package store

import (
	"context"
	"sync"
	"time"

	"chatroom/internal/model"
)

// MemoryStore keeps users and sessions in maps behind one lock. It backs the
// memory:// DSN and the handler tests.
type MemoryStore struct {
	mu sync.RWMutex

	usersByID     map[int64]model.User
	userIDByEmail map[string]int64
	sessionsByID  map[string]model.Session
	sessionByUser map[int64]string
	lastUserID    int64
	now           func() time.Time
}

func NewMemory() *MemoryStore {
	return NewMemoryWithNow(time.Now)
}

func NewMemoryWithNow(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		usersByID:     make(map[int64]model.User),
		userIDByEmail: make(map[string]int64),
		sessionsByID:  make(map[string]model.Session),
		sessionByUser: make(map[int64]string),
		now:           now,
	}
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByEmail[email]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return s.usersByID[id], nil
}

func (s *MemoryStore) CreateUserAndSession(_ context.Context, user model.NewUser, csrfToken, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.userIDByEmail[user.Email]; exists {
		return "", ErrConflict
	}
	if _, exists := s.sessionsByID[sessionID]; exists {
		return "", ErrConflict
	}

	s.lastUserID++
	u := model.User{
		ID:           s.lastUserID,
		Email:        user.Email,
		Handle:       user.Handle,
		PasswordHash: user.PasswordHash,
	}
	s.usersByID[u.ID] = u
	s.userIDByEmail[u.Email] = u.ID
	s.putSessionLocked(u.ID, csrfToken, sessionID)
	return sessionID, nil
}

func (s *MemoryStore) ReplaceSessionForUser(_ context.Context, userID int64, csrfToken, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByID[userID]; !ok {
		return "", ErrNotFound
	}
	if existing, ok := s.sessionsByID[sessionID]; ok && existing.UserID != userID {
		return "", ErrConflict
	}

	if old, ok := s.sessionByUser[userID]; ok {
		delete(s.sessionsByID, old)
	}
	s.putSessionLocked(userID, csrfToken, sessionID)
	return sessionID, nil
}

func (s *MemoryStore) putSessionLocked(userID int64, csrfToken, sessionID string) {
	s.sessionsByID[sessionID] = model.Session{
		ID:        sessionID,
		CSRFToken: csrfToken,
		UserID:    userID,
		CreatedAt: s.now().Truncate(time.Second),
	}
	s.sessionByUser[userID] = sessionID
}

func (s *MemoryStore) FindSessionByID(_ context.Context, id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessionsByID[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessionsByID[id]
	if !ok {
		return nil
	}
	delete(s.sessionsByID, id)
	if s.sessionByUser[sess.UserID] == id {
		delete(s.sessionByUser, sess.UserID)
	}
	return nil
}

// SessionCount reports how many session rows exist for userID.
func (s *MemoryStore) SessionCount(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sess := range s.sessionsByID {
		if sess.UserID == userID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
