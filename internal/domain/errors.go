package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrCategoryNotOwned = errors.New("category does not belong to owner")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoCategories     = errors.New("owner has no categories")
	ErrAlreadyConfirmed = errors.New("receipt already confirmed")
)
