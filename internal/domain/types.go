package domain

import "time"

// DateLayout formats calendar dates such as expiry dates.
const DateLayout = "2006-01-02"

// GuestOwnerID is used for requests that carry no X-User-ID when auth is not required.
const GuestOwnerID = "guest"

type User struct {
	ID        string
	CreatedAt time.Time
}

type Category struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

// Nutrition values are per declared quantity of the item.
type Nutrition struct {
	Protein  *float64 `json:"protein,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty"`
	Fats     *float64 `json:"fats,omitempty"`
	Calories *float64 `json:"calories,omitempty"`
}

type FoodItem struct {
	ID         int64      `json:"id"`
	OwnerID    string     `json:"ownerId"`
	CategoryID int64      `json:"categoryId"`
	Name       string     `json:"name"`
	Quantity   int        `json:"quantity"`
	Unit       string     `json:"unit"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	Nutrition
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewFoodItem is the input for creating an inventory item.
type NewFoodItem struct {
	CategoryID int64
	Name       string
	Quantity   int
	Unit       string
	ExpiryDate *time.Time
	Nutrition
}

// FoodItemUpdate carries optional edits; nil fields are left unchanged.
type FoodItemUpdate struct {
	CategoryID *int64
	Name       *string
	Quantity   *int
	Unit       *string
	ExpiryDate *time.Time
}

// Candidate category hints produced by extraction.
const (
	HintRefrigerated = "refrigerated"
	HintFrozen       = "frozen"
	HintVegetable    = "vegetable"
	HintAmbient      = "ambient"
)

// CandidateItem is an unconfirmed extraction result. It is never persisted
// as inventory without passing through reconciliation.
type CandidateItem struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

// Receipt is written once after extraction and never mutated.
type Receipt struct {
	ID             int64           `json:"id"`
	OwnerID        string          `json:"ownerId"`
	ImageReference string          `json:"imageReference"`
	RawText        string          `json:"rawText"`
	ExtractedItems []CandidateItem `json:"extractedItems"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type ShoppingItem struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Unit      string    `json:"unit"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	PostTypeRecipe      = "recipe"
	PostTypeTip         = "tip"
	PostTypeQuestion    = "question"
	PostTypeAchievement = "achievement"
)

type CommunityPost struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Likes     int       `json:"likes"`
	Replies   int       `json:"replies"`
	CreatedAt time.Time `json:"createdAt"`
}

const FeedbackStatusSubmitted = "submitted"

type Feedback struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Votes       int       `json:"votes"`
	CreatedAt   time.Time `json:"createdAt"`
}
