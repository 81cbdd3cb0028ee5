package postgres

import (
	"context"
	"errors"
	"strings"

	"wincvex/internal/model"
	"wincvex/internal/store"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	var out model.User
	err := s.pool.QueryRow(ctx, `
		insert into public.users (username, password_hash)
		values ($1, $2)
		returning id::text, username, password_hash, created_at, updated_at
	`, strings.TrimSpace(u.Username), u.PasswordHash).Scan(
		&out.ID,
		&out.Username,
		&out.PasswordHash,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return model.User{}, mapPgErr(err)
	}
	return out, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
		select id::text, username, password_hash, created_at, updated_at
		from public.users
		where lower(username) = lower($1)
	`, strings.TrimSpace(username)).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapPgErr(err)
	}
	return &u, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	tag, err := s.pool.Exec(ctx, `
		update public.users
		set password_hash = $2, updated_at = now()
		where id = $1::uuid
	`, id, hash)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
