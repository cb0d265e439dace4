package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

const shoppingColumns = `id, owner_id, name, quantity, unit, completed, created_at`

func scanShoppingItem(row rowScanner) (*domain.ShoppingItem, error) {
	item := &domain.ShoppingItem{}
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Quantity, &item.Unit, &item.Completed, &item.CreatedAt); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ShoppingStore) Create(ctx context.Context, ownerID, name string, quantity int, unit string) (*domain.ShoppingItem, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO shopping_items (owner_id, name, quantity, unit) VALUES (?, ?, ?, ?)
	`, ownerID, name, quantity, unit)
	if err != nil {
		return nil, fmt.Errorf("failed to create shopping item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, ownerID, id)
}

func (s *ShoppingStore) GetByID(ctx context.Context, ownerID string, id int64) (*domain.ShoppingItem, error) {
	item, err := scanShoppingItem(s.db.QueryRowContext(ctx, `
		SELECT `+shoppingColumns+` FROM shopping_items WHERE id = ? AND owner_id = ?
	`, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shopping item: %w", err)
	}
	return item, nil
}

// List returns open items first, then completed ones.
func (s *ShoppingStore) List(ctx context.Context, ownerID string) ([]*domain.ShoppingItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shoppingColumns+` FROM shopping_items WHERE owner_id = ? ORDER BY completed ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping items: %w", err)
	}
	defer closeRows(rows)

	var items []*domain.ShoppingItem
	for rows.Next() {
		item, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shopping item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shopping items: %w", err)
	}

	return items, nil
}

func (s *ShoppingStore) Update(ctx context.Context, item *domain.ShoppingItem) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE shopping_items SET name = ?, quantity = ?, unit = ?, completed = ? WHERE id = ? AND owner_id = ?
	`, item.Name, item.Quantity, item.Unit, item.Completed, item.ID, item.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update shopping item: %w", err)
	}
	return expectOne(result, "shopping item", item.ID)
}

func (s *ShoppingStore) Delete(ctx context.Context, ownerID string, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM shopping_items WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete shopping item: %w", err)
	}
	return expectOne(result, "shopping item", id)
}

func expectOne(result sql.Result, what string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return nil
}
