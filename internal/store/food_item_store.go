package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

type FoodItemStore struct {
	db *sql.DB
}

func NewFoodItemStore(db *sql.DB) *FoodItemStore {
	return &FoodItemStore{db: db}
}

const foodItemColumns = `id, owner_id, category_id, name, quantity, unit, expiry_date,
	protein, carbs, fats, calories, created_at, updated_at`

func scanFoodItem(row rowScanner) (*domain.FoodItem, error) {
	item := &domain.FoodItem{}
	var expiry sql.NullString
	var protein, carbs, fats, calories sql.NullFloat64
	if err := row.Scan(&item.ID, &item.OwnerID, &item.CategoryID, &item.Name, &item.Quantity, &item.Unit, &expiry,
		&protein, &carbs, &fats, &calories, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	date, err := parseDate(expiry)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry date %q: %w", expiry.String, err)
	}
	item.ExpiryDate = date
	item.Protein = floatPtr(protein)
	item.Carbs = floatPtr(carbs)
	item.Fats = floatPtr(fats)
	item.Calories = floatPtr(calories)
	return item, nil
}

// Create inserts an item for ownerID. The insert only happens when the
// category belongs to the same owner; otherwise domain.ErrCategoryNotOwned
// is returned.
func (s *FoodItemStore) Create(ctx context.Context, ownerID string, in domain.NewFoodItem) (*domain.FoodItem, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO food_items (owner_id, category_id, name, quantity, unit, expiry_date, protein, carbs, fats, calories)
		SELECT ?, c.id, ?, ?, ?, ?, ?, ?, ?, ? FROM categories c WHERE c.id = ? AND c.owner_id = ?
	`, ownerID, in.Name, in.Quantity, in.Unit, formatDate(in.ExpiryDate),
		nullFloat(in.Protein), nullFloat(in.Carbs), nullFloat(in.Fats), nullFloat(in.Calories),
		in.CategoryID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create food item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrCategoryNotOwned
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, ownerID, id)
}

func (s *FoodItemStore) GetByID(ctx context.Context, ownerID string, id int64) (*domain.FoodItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+foodItemColumns+` FROM food_items WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	item, err := scanFoodItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get food item: %w", err)
	}
	return item, nil
}

// List returns the owner's items, optionally limited to one category.
func (s *FoodItemStore) List(ctx context.Context, ownerID string, categoryID *int64) ([]*domain.FoodItem, error) {
	query := `SELECT ` + foodItemColumns + ` FROM food_items WHERE owner_id = ?`
	args := []any{ownerID}
	if categoryID != nil {
		query += ` AND category_id = ?`
		args = append(args, *categoryID)
	}
	query += ` ORDER BY name ASC, id ASC`
	return s.query(ctx, query, args...)
}

// ListExpiringBefore returns items with an expiry date on or before cutoff,
// soonest first. Items without an expiry date are never included.
func (s *FoodItemStore) ListExpiringBefore(ctx context.Context, ownerID string, cutoff time.Time) ([]*domain.FoodItem, error) {
	return s.query(ctx, `
		SELECT `+foodItemColumns+` FROM food_items
		WHERE owner_id = ? AND expiry_date IS NOT NULL AND expiry_date <= ?
		ORDER BY expiry_date ASC, name ASC
	`, ownerID, cutoff.Format(DateLayout))
}

func (s *FoodItemStore) query(ctx context.Context, query string, args ...any) ([]*domain.FoodItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list food items: %w", err)
	}
	defer closeRows(rows)

	var items []*domain.FoodItem
	for rows.Next() {
		item, err := scanFoodItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food items: %w", err)
	}

	return items, nil
}

// Update writes every mutable field of item. The category must still belong
// to the owner.
func (s *FoodItemStore) Update(ctx context.Context, item *domain.FoodItem) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE food_items
		SET category_id = ?, name = ?, quantity = ?, unit = ?, expiry_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ?
		  AND EXISTS (SELECT 1 FROM categories WHERE id = ? AND owner_id = ?)
	`, item.CategoryID, item.Name, item.Quantity, item.Unit, formatDate(item.ExpiryDate),
		item.ID, item.OwnerID, item.CategoryID, item.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update food item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("food item %d: %w", item.ID, domain.ErrNotFound)
	}

	return nil
}

func (s *FoodItemStore) Delete(ctx context.Context, ownerID string, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM food_items WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete food item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("food item %d: %w", id, domain.ErrNotFound)
	}

	return nil
}
