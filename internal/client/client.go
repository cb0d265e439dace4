// Package client is a typed client for the pantrytrack HTTP API. Every
// request carries the owner id from an identity.Provider.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vbonduro/pantrytrack/internal/domain"
	"github.com/vbonduro/pantrytrack/internal/identity"
	"github.com/vbonduro/pantrytrack/internal/products"
	"github.com/vbonduro/pantrytrack/internal/reconcile"
	"github.com/vbonduro/pantrytrack/internal/service"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Kind    string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("pantrytrack: status %d (%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("pantrytrack: status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	ids     identity.Provider
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, ids identity.Provider, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		ids:     ids,
		http: &http.Client{
			Timeout:   5 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Analysis is the server's reading of one receipt.
type Analysis struct {
	ReceiptID      int64                  `json:"receiptId"`
	ImageReference string                 `json:"imageReference"`
	RawText        string                 `json:"rawText"`
	ExtractedItems []domain.CandidateItem `json:"extractedItems"`
	Drafts         []reconcile.Draft      `json:"drafts"`
	Stage          string                 `json:"stage"`
}

func (c *Client) InitCategories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	if err := c.doJSON(ctx, http.MethodPost, "/categories/init", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	if err := c.doJSON(ctx, http.MethodGet, "/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// AnalyzeReceipt uploads an image as the "receipt" form field.
func (c *Client) AnalyzeReceipt(ctx context.Context, filename string, image io.Reader) (*Analysis, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("receipt", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/receipts/analyze", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out Analysis
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmReceipt commits a receipt's drafts with the given decisions. A
// batch in which every item failed is returned as a result, not an error.
func (c *Client) ConfirmReceipt(ctx context.Context, receiptID int64, decisions []reconcile.Decision) (*service.BatchResult, error) {
	path := fmt.Sprintf("/receipts/%d/confirm", receiptID)
	return c.batch(ctx, path, map[string]any{"decisions": decisions})
}

// CommitBatch submits reviewed items. A batch in which every item failed is
// returned as a result, not an error.
func (c *Client) CommitBatch(ctx context.Context, items []reconcile.BatchItem) (*service.BatchResult, error) {
	return c.batch(ctx, "/food-items/batch", items)
}

func (c *Client) batch(ctx context.Context, path string, in any) (*service.BatchResult, error) {
	var out service.BatchResult
	err := c.doJSON(ctx, http.MethodPost, path, in, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity && out.Failures != nil {
		return &out, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LookupProduct(ctx context.Context, barcode string) (*products.Product, error) {
	var p products.Product
	if err := c.doJSON(ctx, http.MethodGet, "/products/"+url.PathEscape(barcode), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ownerID, err := c.ids.UserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user id: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(identity.HeaderUserID, ownerID)
	return req, nil
}

// do sends req and decodes the body into out. For a 422 the body is decoded
// into out as well as reported as an *APIError.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error  string            `json:"error"`
		Kind   string            `json:"kind"`
		Fields map[string]string `json:"fields"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message, apiErr.Kind, apiErr.Fields = body.Error, body.Kind, body.Fields
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if resp.StatusCode == http.StatusUnprocessableEntity && out != nil {
		_ = json.Unmarshal(data, out)
	}
	return apiErr
}
