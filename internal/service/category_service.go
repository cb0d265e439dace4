package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vbonduro/pantrytrack/internal/domain"
	"github.com/vbonduro/pantrytrack/internal/reconcile"
)

type CategoryService struct {
	categories categoryRepository
}

func NewCategoryService(categories categoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// Init gives the owner the canonical categories if they have none and
// returns all of the owner's categories. Repeated calls create nothing.
func (s *CategoryService) Init(ctx context.Context, ownerID string) ([]*domain.Category, error) {
	cats, err := s.categories.EnsureDefaults(ctx, ownerID, reconcile.CanonicalCategories)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure categories: %w", err)
	}
	return cats, nil
}

// List is Init under another name: listing always bootstraps.
func (s *CategoryService) List(ctx context.Context, ownerID string) ([]*domain.Category, error) {
	return s.Init(ctx, ownerID)
}

func (s *CategoryService) Create(ctx context.Context, ownerID, name, icon, color string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", domain.ErrInvalidInput)
	}

	existing, err := s.Init(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		if strings.EqualFold(c.Name, name) {
			return nil, fmt.Errorf("%w: category %q already exists", domain.ErrInvalidInput, name)
		}
	}

	return s.categories.Create(ctx, ownerID, name, icon, color)
}

// Get returns nil when the category does not exist for the owner.
func (s *CategoryService) Get(ctx context.Context, ownerID string, id int64) (*domain.Category, error) {
	return s.categories.GetByID(ctx, ownerID, id)
}
