package reconcile

import (
	"strings"
	"time"

	"github.com/vbonduro/pantrytrack/internal/domain"
	"github.com/vbonduro/pantrytrack/internal/vision"
)

const (
	CategoryRefrigerator    = "Refrigerator"
	CategoryVegetableDrawer = "Vegetable Drawer"
	CategoryFreezer         = "Freezer"
	CategoryChilled         = "Chilled"
)

// CanonicalCategories are created for every owner on first use, in this order.
var CanonicalCategories = []domain.Category{
	{Name: CategoryRefrigerator, Icon: "snowflake", Color: "#2196F3"},
	{Name: CategoryVegetableDrawer, Icon: "leaf", Color: "#4CAF50"},
	{Name: CategoryFreezer, Icon: "icicles", Color: "#6366F1"},
	{Name: CategoryChilled, Icon: "thermometer", Color: "#9C27B0"},
}

// Ambient goods have no canonical home, so they land in the refrigerator
// like unknown hints do.
var hintCategory = map[string]string{
	domain.HintRefrigerated: CategoryRefrigerator,
	domain.HintFrozen:       CategoryFreezer,
	domain.HintVegetable:    CategoryVegetableDrawer,
	domain.HintAmbient:      CategoryRefrigerator,
}

// CategoryFor maps an untrusted category hint onto one of the owner's
// categories. When the owner lacks the mapped name the first category is
// used, so it only fails when categories is empty.
func CategoryFor(hint string, categories []*domain.Category) (*domain.Category, error) {
	if len(categories) == 0 {
		return nil, domain.ErrNoCategories
	}

	name, ok := hintCategory[vision.NormalizeCategory(hint)]
	if !ok {
		name = CategoryRefrigerator
	}
	for _, c := range categories {
		if c.Name == name {
			return c, nil
		}
	}
	return categories[0], nil
}

// ShelfLifeDays is the default number of days an item keeps in a category,
// keyed on words in the category name.
func ShelfLifeDays(categoryName string) int {
	name := strings.ToLower(categoryName)
	switch {
	case strings.Contains(name, "vegetable"):
		return 5
	case strings.Contains(name, "freez"):
		return 30
	case strings.Contains(name, "ambient"), strings.Contains(name, "pantry"):
		return 14
	case strings.Contains(name, "chilled"), strings.Contains(name, "dairy"), strings.Contains(name, "meat"):
		return 3
	default:
		return 7
	}
}

// DefaultExpiry is the calendar date ShelfLifeDays after today.
func DefaultExpiry(today time.Time, categoryName string) time.Time {
	y, m, d := today.Date()
	return time.Date(y, m, d+ShelfLifeDays(categoryName), 0, 0, 0, 0, time.UTC)
}

func findCategory(categories []*domain.Category, id int64) *domain.Category {
	for _, c := range categories {
		if c.ID == id {
			return c
		}
	}
	return nil
}
