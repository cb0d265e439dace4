package products

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	userAgent = "pantrytrack/1.0"

	maxResponseBytes = 2 << 20
)

// OpenFoodFacts queries the public Open Food Facts product API.
type OpenFoodFacts struct {
	baseURL string
	client  *http.Client
}

func NewOpenFoodFacts(baseURL string) *OpenFoodFacts {
	return &OpenFoodFacts{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName     string   `json:"product_name"`
		ProductNameJA   string   `json:"product_name_ja"`
		Brands          string   `json:"brands"`
		CategoriesTags  []string `json:"categories_tags"`
		ImageURL        string   `json:"image_url"`
		IngredientsText string   `json:"ingredients_text"`
	} `json:"product"`
}

func (c *OpenFoodFacts) Product(ctx context.Context, barcode string) (*Product, error) {
	u := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call open food facts: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open food facts returned status %d", resp.StatusCode)
	}

	var body offResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode open food facts response: %w", err)
	}
	if body.Status != 1 {
		return nil, ErrNotFound
	}

	p := &Product{
		Barcode:     barcode,
		Name:        firstNonEmpty(body.Product.ProductName, body.Product.ProductNameJA, "Unknown product"),
		Brand:       body.Product.Brands,
		ImageURL:    body.Product.ImageURL,
		Description: body.Product.IngredientsText,
	}
	if len(body.Product.CategoriesTags) > 0 {
		tag := body.Product.CategoriesTags[0]
		if _, after, ok := strings.Cut(tag, ":"); ok {
			tag = after
		}
		p.Category = tag
	}
	return p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
