// Package service holds the use cases behind the HTTP API. Every method is
// scoped to one owner.
package service

import (
	"context"
	"time"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

// categoryRepository is the subset of store.CategoryStore the services require.
type categoryRepository interface {
	EnsureDefaults(ctx context.Context, ownerID string, defaults []domain.Category) ([]*domain.Category, error)
	Create(ctx context.Context, ownerID, name, icon, color string) (*domain.Category, error)
	GetByID(ctx context.Context, ownerID string, id int64) (*domain.Category, error)
	List(ctx context.Context, ownerID string) ([]*domain.Category, error)
}

// foodItemRepository is the subset of store.FoodItemStore the services require.
type foodItemRepository interface {
	Create(ctx context.Context, ownerID string, in domain.NewFoodItem) (*domain.FoodItem, error)
	GetByID(ctx context.Context, ownerID string, id int64) (*domain.FoodItem, error)
	List(ctx context.Context, ownerID string, categoryID *int64) ([]*domain.FoodItem, error)
	ListExpiringBefore(ctx context.Context, ownerID string, cutoff time.Time) ([]*domain.FoodItem, error)
	Update(ctx context.Context, item *domain.FoodItem) error
	Delete(ctx context.Context, ownerID string, id int64) error
}

// receiptRepository is the subset of store.ReceiptStore the services require.
type receiptRepository interface {
	Create(ctx context.Context, ownerID, imageRef, rawText string, items []domain.CandidateItem) (*domain.Receipt, error)
	GetByID(ctx context.Context, ownerID string, id int64) (*domain.Receipt, error)
	List(ctx context.Context, ownerID string) ([]*domain.Receipt, error)
	MarkConfirmed(ctx context.Context, ownerID string, id int64) error
	ClearConfirmation(ctx context.Context, ownerID string, id int64) error
}

type shoppingRepository interface {
	Create(ctx context.Context, ownerID, name string, quantity int, unit string) (*domain.ShoppingItem, error)
	GetByID(ctx context.Context, ownerID string, id int64) (*domain.ShoppingItem, error)
	List(ctx context.Context, ownerID string) ([]*domain.ShoppingItem, error)
	Update(ctx context.Context, item *domain.ShoppingItem) error
	Delete(ctx context.Context, ownerID string, id int64) error
}

type communityRepository interface {
	CreatePost(ctx context.Context, ownerID, username, content, postType string) (*domain.CommunityPost, error)
	ListPosts(ctx context.Context, ownerID string) ([]*domain.CommunityPost, error)
	LikePost(ctx context.Context, ownerID string, id int64) error
	CreateFeedback(ctx context.Context, ownerID, title, description string) (*domain.Feedback, error)
	ListFeedback(ctx context.Context, ownerID string) ([]*domain.Feedback, error)
}

// today is the current calendar date in UTC.
func today(now func() time.Time) time.Time {
	y, m, d := now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
