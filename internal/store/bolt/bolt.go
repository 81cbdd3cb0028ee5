// Package bolt keeps users in an embedded bbolt file. Useful for a single
// API instance that should survive restarts without a database server.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"wincvex/internal/model"
	"wincvex/internal/store"
)

const openTimeout = 2 * time.Second

var (
	usersBucket     = []byte("users")
	usernamesBucket = []byte("usernames")
)

type Store struct {
	db *bbolt.DB
}

func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{usersBucket, usernamesBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	_ = s.db.Close()
}

func nameKey(username string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(username)))
}

func (s *Store) CreateUser(_ context.Context, u model.User) (model.User, error) {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return model.User{}, fmt.Errorf("username required")
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now

	err := s.db.Update(func(tx *bbolt.Tx) error {
		names := tx.Bucket(usernamesBucket)
		key := nameKey(u.Username)
		if names.Get(key) != nil {
			return store.ErrConflict
		}
		if err := putUser(tx, u); err != nil {
			return err
		}
		return names.Put(key, []byte(u.ID))
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	var out *model.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(usernamesBucket).Get(nameKey(username))
		if id == nil {
			return store.ErrNotFound
		}
		u, err := getUser(tx, id)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		u, err := getUser(tx, []byte(id))
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		u.UpdatedAt = time.Now().UTC()
		return putUser(tx, *u)
	})
}

// record is the stored form; model.User hides the hash from JSON.
type record struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func putUser(tx *bbolt.Tx, u model.User) error {
	b, err := json.Marshal(record(u))
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return tx.Bucket(usersBucket).Put([]byte(u.ID), b)
}

func getUser(tx *bbolt.Tx, id []byte) (*model.User, error) {
	raw := tx.Bucket(usersBucket).Get(id)
	if raw == nil {
		return nil, store.ErrNotFound
	}
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	u := model.User(r)
	return &u, nil
}
