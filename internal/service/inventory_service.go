package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vbonduro/pantrytrack/internal/domain"
	"github.com/vbonduro/pantrytrack/internal/metrics"
	"github.com/vbonduro/pantrytrack/internal/reconcile"
	"github.com/vbonduro/pantrytrack/internal/validate"
)

// MaxBatchSize bounds one batch commit.
const MaxBatchSize = 200

const (
	reasonCategoryNotFound = "category not found"
	reasonSaveFailed       = "failed to save item"
)

type InventoryService struct {
	categories *CategoryService
	items      foodItemRepository
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewInventoryService(categories *CategoryService, items foodItemRepository, m *metrics.Metrics, logger *slog.Logger) *InventoryService {
	return &InventoryService{
		categories: categories,
		items:      items,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// BatchResult reports a batch commit item by item.
type BatchResult struct {
	CreatedCount int                 `json:"createdCount"`
	Items        []*domain.FoodItem  `json:"items"`
	Failures     []reconcile.Failure `json:"failures"`
}

// Failed reports whether the batch as a whole failed: items were submitted
// but none was created.
func (r *BatchResult) Failed() bool {
	return r.CreatedCount == 0 && len(r.Failures) > 0
}

// CommitBatch inserts every item independently. A bad item is recorded in
// Failures and never aborts the rest of the batch.
func (s *InventoryService) CommitBatch(ctx context.Context, ownerID string, batch []reconcile.BatchItem) (*BatchResult, error) {
	resolved := make([]reconcile.Resolved, len(batch))
	for i, item := range batch {
		resolved[i] = reconcile.Resolved{Index: i, Item: item}
	}
	return s.CommitDecoded(ctx, ownerID, resolved, nil)
}

// CommitDecoded commits the items that decoded and reports the rejected ones
// alongside the per-item failures of the commit itself.
func (s *InventoryService) CommitDecoded(ctx context.Context, ownerID string, items []reconcile.Resolved, rejected []reconcile.Failure) (*BatchResult, error) {
	total := len(items) + len(rejected)
	if total == 0 {
		return nil, fmt.Errorf("%w: batch is empty", domain.ErrInvalidInput)
	}
	if total > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch exceeds %d items", domain.ErrInvalidInput, MaxBatchSize)
	}
	return s.commit(ctx, ownerID, items, rejected)
}

func (s *InventoryService) commit(ctx context.Context, ownerID string, resolved []reconcile.Resolved, failures []reconcile.Failure) (*BatchResult, error) {
	if _, err := s.categories.Init(ctx, ownerID); err != nil {
		return nil, err
	}

	result := &BatchResult{
		Items:    []*domain.FoodItem{},
		Failures: append([]reconcile.Failure{}, failures...),
	}
	for _, r := range resolved {
		item, reason := s.commitOne(ctx, ownerID, r.Item)
		if reason != "" {
			result.Failures = append(result.Failures, reconcile.Failure{Index: r.Index, Name: r.Item.Name, Reason: reason})
			continue
		}
		result.Items = append(result.Items, item)
	}
	result.CreatedCount = len(result.Items)
	sort.SliceStable(result.Failures, func(i, j int) bool {
		return result.Failures[i].Index < result.Failures[j].Index
	})

	s.metrics.BatchCommitted(result.CreatedCount, len(result.Failures))
	s.logger.InfoContext(ctx, "batch committed",
		"owner_id", ownerID, "created", result.CreatedCount, "failed", len(result.Failures))
	return result, nil
}

func (s *InventoryService) commitOne(ctx context.Context, ownerID string, b reconcile.BatchItem) (*domain.FoodItem, string) {
	b = b.WithDefaults()
	if reconcile.IsGenericName(b.Name) {
		return nil, reconcile.ReasonConcreteName
	}
	if err := reconcile.ValidateItem(b); err != nil {
		return nil, validate.Reason(err)
	}
	in, err := b.NewFoodItem()
	if err != nil {
		return nil, err.Error()
	}

	item, err := s.items.Create(ctx, ownerID, in)
	switch {
	case errors.Is(err, domain.ErrCategoryNotOwned):
		return nil, reasonCategoryNotFound
	case err != nil:
		s.logger.ErrorContext(ctx, "failed to create food item", "name", b.Name, "error", err)
		return nil, reasonSaveFailed
	}
	return item, ""
}

// Create adds one manually entered item.
func (s *InventoryService) Create(ctx context.Context, ownerID string, b reconcile.BatchItem) (*domain.FoodItem, error) {
	if _, err := s.categories.Init(ctx, ownerID); err != nil {
		return nil, err
	}
	b = b.WithDefaults()
	if err := reconcile.ValidateItem(b); err != nil {
		return nil, err
	}
	in, err := b.NewFoodItem()
	if err != nil {
		return nil, err
	}
	return s.items.Create(ctx, ownerID, in)
}

func (s *InventoryService) List(ctx context.Context, ownerID string, categoryID *int64) ([]*domain.FoodItem, error) {
	items, err := s.items.List(ctx, ownerID, categoryID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.FoodItem{}
	}
	return items, nil
}

// Update applies the non-nil fields of upd.
func (s *InventoryService) Update(ctx context.Context, ownerID string, id int64, upd domain.FoodItemUpdate) (*domain.FoodItem, error) {
	item, err := s.items.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get food item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("food item %d: %w", id, domain.ErrNotFound)
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
		if item.Unit == "" {
			item.Unit = reconcile.DefaultUnit
		}
	}
	if upd.ExpiryDate != nil {
		item.ExpiryDate = upd.ExpiryDate
	}
	if upd.CategoryID != nil && *upd.CategoryID != item.CategoryID {
		cat, err := s.categories.Get(ctx, ownerID, *upd.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to get category: %w", err)
		}
		if cat == nil {
			return nil, domain.ErrCategoryNotOwned
		}
		item.CategoryID = cat.ID
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return s.items.GetByID(ctx, ownerID, id)
}

// RecomputeExpiry resets every item's expiry date to today plus the shelf
// life of its category and returns how many items were updated.
func (s *InventoryService) RecomputeExpiry(ctx context.Context, ownerID string) (int, error) {
	cats, err := s.categories.List(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list categories: %w", err)
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	items, err := s.items.List(ctx, ownerID, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list food items: %w", err)
	}

	now := today(s.now)
	for _, item := range items {
		expiry := reconcile.DefaultExpiry(now, names[item.CategoryID])
		item.ExpiryDate = &expiry
		if err := s.items.Update(ctx, item); err != nil {
			return 0, fmt.Errorf("failed to update food item %d: %w", item.ID, err)
		}
	}
	s.logger.InfoContext(ctx, "expiry dates recomputed", "owner_id", ownerID, "updated", len(items))
	return len(items), nil
}

func (s *InventoryService) Delete(ctx context.Context, ownerID string, id int64) error {
	return s.items.Delete(ctx, ownerID, id)
}

const (
	StatusExpired = "expired"
	StatusWarning = "warning"
	StatusFresh   = "fresh"

	// WarningDays is how close to expiry an item turns to warning.
	WarningDays = 3
)

// ExpiringItem is a food item with its distance to expiry.
type ExpiringItem struct {
	*domain.FoodItem
	DaysLeft int    `json:"daysLeft"`
	Status   string `json:"status"`
}

// Expiring lists items that expire within days from today, including items
// already past their date.
func (s *InventoryService) Expiring(ctx context.Context, ownerID string, days int) ([]ExpiringItem, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative", domain.ErrInvalidInput)
	}
	now := today(s.now)
	items, err := s.items.ListExpiringBefore(ctx, ownerID, now.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	out := make([]ExpiringItem, 0, len(items))
	for _, item := range items {
		left := DaysUntil(now, *item.ExpiryDate)
		out = append(out, ExpiringItem{FoodItem: item, DaysLeft: left, Status: ExpiryStatus(left)})
	}
	return out, nil
}

// DaysUntil counts whole calendar days from today to expiry.
func DaysUntil(today, expiry time.Time) int {
	y, m, d := expiry.Date()
	e := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(math.Round(e.Sub(today).Hours() / 24))
}

func ExpiryStatus(daysLeft int) string {
	switch {
	case daysLeft < 0:
		return StatusExpired
	case daysLeft <= WarningDays:
		return StatusWarning
	default:
		return StatusFresh
	}
}

// Daily targets in grams.
var NutritionTargets = NutritionValues{Protein: 60, Carbs: 300, Fats: 60}

type NutritionValues struct {
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Calories float64 `json:"calories,omitempty"`
}

type NutritionSummary struct {
	Totals      NutritionValues `json:"totals"`
	Percentages NutritionValues `json:"percentages"`
	Targets     NutritionValues `json:"targets"`
}

// NutritionSummary sums each item's nutrition times its quantity. Missing
// values count as zero and percentages are capped at 100.
func (s *InventoryService) NutritionSummary(ctx context.Context, ownerID string) (*NutritionSummary, error) {
	items, err := s.items.List(ctx, ownerID, nil)
	if err != nil {
		return nil, err
	}

	var totals NutritionValues
	for _, item := range items {
		qty := float64(max(item.Quantity, 1))
		totals.Protein += value(item.Protein) * qty
		totals.Carbs += value(item.Carbs) * qty
		totals.Fats += value(item.Fats) * qty
		totals.Calories += value(item.Calories) * qty
	}

	return &NutritionSummary{
		Totals: totals,
		Percentages: NutritionValues{
			Protein: percent(totals.Protein, NutritionTargets.Protein),
			Carbs:   percent(totals.Carbs, NutritionTargets.Carbs),
			Fats:    percent(totals.Fats, NutritionTargets.Fats),
		},
		Targets: NutritionTargets,
	}, nil
}

func value(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func percent(total, target float64) float64 {
	return math.Min(total/target*100, 100)
}
