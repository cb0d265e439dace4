package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Ensure records id as a known owner. It is a no-op for existing owners.
func (s *UserStore) Ensure(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO users (id) VALUES (?)`, id); err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRowContext(ctx, `SELECT id, created_at FROM users WHERE id = ?`, id).Scan(&u.ID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}
