package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

type CategoryStore struct {
	db *sql.DB
}

func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, owner_id, name, icon, color, created_at`

func scanCategory(row rowScanner) (*domain.Category, error) {
	c := &domain.Category{}
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Icon, &c.Color, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// EnsureDefaults creates defaults for ownerID when the owner has no
// categories at all, then returns the owner's categories. Concurrent callers
// cannot duplicate rows because (owner_id, name) is unique.
func (s *CategoryStore) EnsureDefaults(ctx context.Context, ownerID string, defaults []domain.Category) ([]*domain.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE owner_id = ?`, ownerID).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	if count == 0 {
		for _, c := range defaults {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO categories (owner_id, name, icon, color) VALUES (?, ?, ?, ?)
			`, ownerID, c.Name, c.Icon, c.Color); err != nil {
				return nil, fmt.Errorf("failed to create category %q: %w", c.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit categories: %w", err)
	}

	return s.List(ctx, ownerID)
}

func (s *CategoryStore) Create(ctx context.Context, ownerID, name, icon, color string) (*domain.Category, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (owner_id, name, icon, color) VALUES (?, ?, ?, ?)
	`, ownerID, name, icon, color)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, ownerID, id)
}

func (s *CategoryStore) GetByID(ctx context.Context, ownerID string, id int64) (*domain.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// List returns the owner's categories in creation order.
func (s *CategoryStore) List(ctx context.Context, ownerID string) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE owner_id = ? ORDER BY id ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer closeRows(rows)

	var categories []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}
