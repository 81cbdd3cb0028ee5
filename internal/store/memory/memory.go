package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"wincvex/internal/model"
	"wincvex/internal/store"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	users map[string]model.User
	// lower(username) -> id
	byName map[string]string
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]model.User),
		byName: make(map[string]string),
	}
}

type codeError string

func (e codeError) Error() string { return string(e) }

func errWithCode(code string) error { return codeError(code) }

func (s *Store) CreateUser(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.TrimSpace(u.Username)
	if username == "" {
		return model.User{}, errWithCode("username_required")
	}

	key := strings.ToLower(username)
	if _, ok := s.byName[key]; ok {
		return model.User{}, store.ErrConflict
	}

	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.Username = username
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	s.byName[key] = u.ID
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *Store) Close() {}
