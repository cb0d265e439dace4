// Package reconcile turns untrusted extraction candidates into validated
// inventory items. Everything here is pure: callers supply the owner's
// categories and the current date.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/vbonduro/pantrytrack/internal/domain"
	"github.com/vbonduro/pantrytrack/internal/validate"
)

const (
	DefaultQuantity = 1
	DefaultUnit     = "piece"
)

// ReasonConcreteName is the failure reason for a generic produce name that
// was not replaced from VegetableChoices.
const ReasonConcreteName = "concrete name required"

// Draft is the suggested resolution of one candidate, shown to the user
// before anything is committed.
type Draft struct {
	Index             int                  `json:"index"`
	Candidate         domain.CandidateItem `json:"candidate"`
	Name              string               `json:"name"`
	CategoryID        int64                `json:"categoryId"`
	CategoryName      string               `json:"categoryName"`
	Quantity          int                  `json:"quantity"`
	Unit              string               `json:"unit"`
	ExpiryDate        string               `json:"expiryDate"`
	NeedsConcreteName bool                 `json:"needsConcreteName"`
	NameChoices       []string             `json:"nameChoices,omitempty"`
}

// Decision is the user's verdict on one draft. Nil fields keep the draft's
// value. Drafts without a decision are accepted as suggested.
type Decision struct {
	Index      int     `json:"index"`
	Reject     bool    `json:"reject,omitempty"`
	Name       *string `json:"name,omitempty"`
	CategoryID *int64  `json:"categoryId,omitempty"`
	Quantity   *int    `json:"quantity,omitempty"`
	Unit       *string `json:"unit,omitempty"`
	ExpiryDate *string `json:"expiryDate,omitempty"`
}

// BatchItem is one item of a batch commit.
type BatchItem struct {
	Name       string   `json:"name" validate:"required,max=200"`
	CategoryID int64    `json:"categoryId" validate:"required,gt=0"`
	Quantity   int      `json:"quantity" validate:"gte=1"`
	Unit       string   `json:"unit" validate:"required,max=32"`
	ExpiryDate string   `json:"expiryDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Protein    *float64 `json:"protein,omitempty" validate:"omitempty,gte=0"`
	Carbs      *float64 `json:"carbs,omitempty" validate:"omitempty,gte=0"`
	Fats       *float64 `json:"fats,omitempty" validate:"omitempty,gte=0"`
	Calories   *float64 `json:"calories,omitempty" validate:"omitempty,gte=0"`
}

// Failure records an item that was not committed. Index is the item's
// position in the submitted batch or draft list.
type Failure struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Resolved is a committed-ready item with the index of the draft it came from.
type Resolved struct {
	Index int
	Item  BatchItem
}

// Drafts builds one draft per candidate. It fails only when categories is empty.
func Drafts(candidates []domain.CandidateItem, categories []*domain.Category, today time.Time) ([]Draft, error) {
	drafts := make([]Draft, 0, len(candidates))
	for i, c := range candidates {
		cat, err := CategoryFor(c.Category, categories)
		if err != nil {
			return nil, err
		}

		d := Draft{
			Index:        i,
			Candidate:    c,
			Name:         strings.TrimSpace(c.Name),
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			Quantity:     c.Quantity,
			Unit:         c.Unit,
			ExpiryDate:   DefaultExpiry(today, cat.Name).Format(domain.DateLayout),
		}
		if d.Quantity < 1 {
			d.Quantity = DefaultQuantity
		}
		if d.Unit == "" {
			d.Unit = DefaultUnit
		}
		if IsGenericName(d.Name) {
			d.NeedsConcreteName = true
			d.NameChoices = VegetableChoices
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// Resolve applies decisions to drafts. For each field the edited value wins,
// then the extracted value, then the default. When a decision moves an item
// to another category without choosing a date, the expiry is recomputed for
// the new category. Decisions for unknown indexes are ignored.
func Resolve(drafts []Draft, decisions []Decision, categories []*domain.Category, today time.Time) ([]Resolved, []Failure) {
	byIndex := make(map[int]Decision, len(decisions))
	for _, d := range decisions {
		byIndex[d.Index] = d
	}

	var (
		resolved []Resolved
		failures []Failure
	)
	for _, d := range drafts {
		dec, ok := byIndex[d.Index]
		if ok && dec.Reject {
			continue
		}

		item := BatchItem{
			Name:       d.Name,
			CategoryID: d.CategoryID,
			Quantity:   d.Quantity,
			Unit:       d.Unit,
			ExpiryDate: d.ExpiryDate,
		}
		if ok {
			applyDecision(&item, dec, categories, today)
		}
		item = item.WithDefaults()

		if d.NeedsConcreteName || IsGenericName(item.Name) {
			if !IsVegetableChoice(item.Name) {
				failures = append(failures, Failure{Index: d.Index, Name: item.Name, Reason: ReasonConcreteName})
				continue
			}
		}
		if err := ValidateItem(item); err != nil {
			failures = append(failures, Failure{Index: d.Index, Name: item.Name, Reason: validate.Reason(err)})
			continue
		}
		resolved = append(resolved, Resolved{Index: d.Index, Item: item})
	}
	return resolved, failures
}

func applyDecision(item *BatchItem, dec Decision, categories []*domain.Category, today time.Time) {
	if dec.Name != nil {
		item.Name = strings.TrimSpace(*dec.Name)
	}
	if dec.Quantity != nil {
		item.Quantity = *dec.Quantity
	}
	if dec.Unit != nil {
		item.Unit = strings.TrimSpace(*dec.Unit)
	}
	if dec.CategoryID != nil && *dec.CategoryID != item.CategoryID {
		item.CategoryID = *dec.CategoryID
		if cat := findCategory(categories, item.CategoryID); cat != nil {
			item.ExpiryDate = DefaultExpiry(today, cat.Name).Format(domain.DateLayout)
		}
	}
	if dec.ExpiryDate != nil {
		item.ExpiryDate = strings.TrimSpace(*dec.ExpiryDate)
	}
}

// WithDefaults fills an absent quantity or unit.
func (b BatchItem) WithDefaults() BatchItem {
	b.Name = strings.TrimSpace(b.Name)
	if b.Quantity == 0 {
		b.Quantity = DefaultQuantity
	}
	if strings.TrimSpace(b.Unit) == "" {
		b.Unit = DefaultUnit
	}
	return b
}

// ValidateItem checks a batch item's fields.
func ValidateItem(b BatchItem) error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

// NewFoodItem converts a validated batch item for the store.
func (b BatchItem) NewFoodItem() (domain.NewFoodItem, error) {
	in := domain.NewFoodItem{
		CategoryID: b.CategoryID,
		Name:       b.Name,
		Quantity:   b.Quantity,
		Unit:       b.Unit,
		Nutrition: domain.Nutrition{
			Protein:  b.Protein,
			Carbs:    b.Carbs,
			Fats:     b.Fats,
			Calories: b.Calories,
		},
	}
	if b.ExpiryDate != "" {
		t, err := time.Parse(domain.DateLayout, b.ExpiryDate)
		if err != nil {
			return domain.NewFoodItem{}, fmt.Errorf("%w: expiryDate: %w", domain.ErrInvalidInput, err)
		}
		in.ExpiryDate = &t
	}
	return in, nil
}
