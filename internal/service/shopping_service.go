package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

type ShoppingService struct {
	items shoppingRepository
}

func NewShoppingService(items shoppingRepository) *ShoppingService {
	return &ShoppingService{items: items}
}

// ShoppingUpdate carries optional edits; nil fields are left unchanged.
type ShoppingUpdate struct {
	Name      *string
	Quantity  *int
	Unit      *string
	Completed *bool
}

func (s *ShoppingService) Create(ctx context.Context, ownerID, name string, quantity int, unit string) (*domain.ShoppingItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
	}
	return s.items.Create(ctx, ownerID, name, quantity, strings.TrimSpace(unit))
}

func (s *ShoppingService) List(ctx context.Context, ownerID string) ([]*domain.ShoppingItem, error) {
	items, err := s.items.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.ShoppingItem{}
	}
	return items, nil
}

func (s *ShoppingService) Update(ctx context.Context, ownerID string, id int64, upd ShoppingUpdate) (*domain.ShoppingItem, error) {
	item, err := s.items.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get shopping item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("shopping item %d: %w", id, domain.ErrNotFound)
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
		}
		item.Name = name
	}
	if upd.Quantity != nil {
		if *upd.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
		}
		item.Quantity = *upd.Quantity
	}
	if upd.Unit != nil {
		item.Unit = strings.TrimSpace(*upd.Unit)
	}
	if upd.Completed != nil {
		item.Completed = *upd.Completed
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return s.items.GetByID(ctx, ownerID, id)
}

func (s *ShoppingService) Delete(ctx context.Context, ownerID string, id int64) error {
	return s.items.Delete(ctx, ownerID, id)
}
