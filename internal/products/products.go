// Package products resolves scanned barcodes to product details.
package products

import (
	"context"
	"errors"
	"log/slog"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	Barcode     string `json:"barcode"`
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	Category    string `json:"category,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Description string `json:"description,omitempty"`
	// Placeholder marks a product made up from the barcode alone.
	Placeholder bool `json:"placeholder"`
}

// Source looks up one barcode. It returns ErrNotFound for unknown products.
type Source interface {
	Product(ctx context.Context, barcode string) (*Product, error)
}

// Placeholder stands in for a product no source knows about.
func Placeholder(barcode string) *Product {
	return &Product{
		Barcode:     barcode,
		Name:        "Item (" + barcode + ")",
		Category:    "other",
		Placeholder: true,
	}
}

// ValidBarcode accepts the digit-only EAN/UPC family, 6 to 14 digits long.
func ValidBarcode(barcode string) bool {
	if len(barcode) < 6 || len(barcode) > 14 {
		return false
	}
	for _, r := range barcode {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Lookup never fails: any source error or unknown barcode yields the placeholder.
func Lookup(ctx context.Context, src Source, barcode string, logger *slog.Logger) *Product {
	if src == nil || !ValidBarcode(barcode) {
		return Placeholder(barcode)
	}
	p, err := src.Product(ctx, barcode)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.WarnContext(ctx, "product lookup failed", "barcode", barcode, "error", err)
		}
		return Placeholder(barcode)
	}
	if p == nil {
		return Placeholder(barcode)
	}
	return p
}
