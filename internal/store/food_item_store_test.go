package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/pantrytrack/internal/domain"
)

func date(s string) *time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func floatp(f float64) *float64 { return &f }

func TestFoodItemStoreCreate(t *testing.T) {
	d := openTestDB(t)
	categories := NewCategoryStore(d)
	items := NewFoodItemStore(d)
	ctx := context.Background()

	fridge, err := categories.Create(ctx, "guest_1", "Refrigerator", "", "")
	require.NoError(t, err)

	item, err := items.Create(ctx, "guest_1", domain.NewFoodItem{
		CategoryID: fridge.ID,
		Name:       "Milk",
		Quantity:   2,
		Unit:       "bottle",
		ExpiryDate: date("2026-10-23"),
		Nutrition:  domain.Nutrition{Protein: floatp(8)},
	})
	require.NoError(t, err)
	assert.NotZero(t, item.ID)
	assert.Equal(t, "guest_1", item.OwnerID)
	assert.Equal(t, fridge.ID, item.CategoryID)
	assert.Equal(t, "Milk", item.Name)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "bottle", item.Unit)
	require.NotNil(t, item.ExpiryDate)
	assert.Equal(t, "2026-10-23", item.ExpiryDate.Format(DateLayout))
	require.NotNil(t, item.Protein)
	assert.Equal(t, 8.0, *item.Protein)
	assert.Nil(t, item.Calories)
}

func TestFoodItemStoreCreate_ForeignCategory(t *testing.T) {
	d := openTestDB(t)
	categories := NewCategoryStore(d)
	items := NewFoodItemStore(d)
	ctx := context.Background()

	aliceFridge, err := categories.Create(ctx, "alice", "Refrigerator", "", "")
	require.NoError(t, err)

	_, err = items.Create(ctx, "bob", domain.NewFoodItem{CategoryID: aliceFridge.ID, Name: "Milk", Quantity: 1, Unit: "piece"})
	assert.True(t, errors.Is(err, domain.ErrCategoryNotOwned))

	_, err = items.Create(ctx, "bob", domain.NewFoodItem{CategoryID: 9999, Name: "Milk", Quantity: 1, Unit: "piece"})
	assert.True(t, errors.Is(err, domain.ErrCategoryNotOwned))

	list, err := items.List(ctx, "bob", nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFoodItemStoreList(t *testing.T) {
	d := openTestDB(t)
	categories := NewCategoryStore(d)
	items := NewFoodItemStore(d)
	ctx := context.Background()

	fridge, err := categories.Create(ctx, "guest_1", "Refrigerator", "", "")
	require.NoError(t, err)
	freezer, err := categories.Create(ctx, "guest_1", "Freezer", "", "")
	require.NoError(t, err)

	for _, in := range []domain.NewFoodItem{
		{CategoryID: fridge.ID, Name: "Yogurt", Quantity: 1, Unit: "cup"},
		{CategoryID: fridge.ID, Name: "Butter", Quantity: 1, Unit: "block"},
		{CategoryID: freezer.ID, Name: "Peas", Quantity: 1, Unit: "bag"},
	} {
		_, err := items.Create(ctx, "guest_1", in)
		require.NoError(t, err)
	}

	all, err := items.List(ctx, "guest_1", nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Results should be alphabetical
	assert.Equal(t, "Butter", all[0].Name)
	assert.Equal(t, "Peas", all[1].Name)
	assert.Equal(t, "Yogurt", all[2].Name)

	fridgeOnly, err := items.List(ctx, "guest_1", &fridge.ID)
	require.NoError(t, err)
	assert.Len(t, fridgeOnly, 2)

	other, err := items.List(ctx, "someone_else", nil)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestFoodItemStoreListExpiringBefore(t *testing.T) {
	d := openTestDB(t)
	categories := NewCategoryStore(d)
	items := NewFoodItemStore(d)
	ctx := context.Background()

	fridge, err := categories.Create(ctx, "guest_1", "Refrigerator", "", "")
	require.NoError(t, err)

	for _, in := range []domain.NewFoodItem{
		{CategoryID: fridge.ID, Name: "Fish", Quantity: 1, Unit: "piece", ExpiryDate: date("2026-10-17")},
		{CategoryID: fridge.ID, Name: "Cheese", Quantity: 1, Unit: "piece", ExpiryDate: date("2026-11-30")},
		{CategoryID: fridge.ID, Name: "Milk", Quantity: 1, Unit: "piece", ExpiryDate: date("2026-10-15")},
		{CategoryID: fridge.ID, Name: "Rice", Quantity: 1, Unit: "bag"},
	} {
		_, err := items.Create(ctx, "guest_1", in)
		require.NoError(t, err)
	}

	expiring, err := items.ListExpiringBefore(ctx, "guest_1", *date("2026-10-19"))
	require.NoError(t, err)
	require.Len(t, expiring, 2)
	assert.Equal(t, "Milk", expiring[0].Name)
	assert.Equal(t, "Fish", expiring[1].Name)
}

func TestFoodItemStoreUpdate(t *testing.T) {
	d := openTestDB(t)
	categories := NewCategoryStore(d)
	items := NewFoodItemStore(d)
	ctx := context.Background()

	fridge, err := categories.Create(ctx, "guest_1", "Refrigerator", "", "")
	require.NoError(t, err)
	freezer, err := categories.Create(ctx, "guest_1", "Freezer", "", "")
	require.NoError(t, err)

	item, err := items.Create(ctx, "guest_1", domain.NewFoodItem{CategoryID: fridge.ID, Name: "Chicken", Quantity: 1, Unit: "pack"})
	require.NoError(t, err)

	item.CategoryID = freezer.ID
	item.Quantity = 3
	item.ExpiryDate = date("2026-11-15")
	require.NoError(t, items.Update(ctx, item))

	updated, err := items.GetByID(ctx, "guest_1", item.ID)
	require.NoError(t, err)
	assert.Equal(t, freezer.ID, updated.CategoryID)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, "2026-11-15", updated.ExpiryDate.Format(DateLayout))
}

func TestFoodItemStoreUpdate_NotFound(t *testing.T) {
	items := NewFoodItemStore(openTestDB(t))

	err := items.Update(context.Background(), &domain.FoodItem{ID: 99999, OwnerID: "guest_1", Name: "x", Quantity: 1})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFoodItemStoreDelete(t *testing.T) {
	d := openTestDB(t)
	categories := NewCategoryStore(d)
	items := NewFoodItemStore(d)
	ctx := context.Background()

	fridge, err := categories.Create(ctx, "guest_1", "Refrigerator", "", "")
	require.NoError(t, err)
	item, err := items.Create(ctx, "guest_1", domain.NewFoodItem{CategoryID: fridge.ID, Name: "Milk", Quantity: 1, Unit: "piece"})
	require.NoError(t, err)

	err = items.Delete(ctx, "intruder", item.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, items.Delete(ctx, "guest_1", item.ID))

	deleted, err := items.GetByID(ctx, "guest_1", item.ID)
	require.NoError(t, err)
	assert.Nil(t, deleted)
}
