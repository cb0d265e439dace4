package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vbonduro/pantrytrack/internal/db"
	"github.com/vbonduro/pantrytrack/internal/metrics"
	"github.com/vbonduro/pantrytrack/internal/photostore"
	"github.com/vbonduro/pantrytrack/internal/store"
	"github.com/vbonduro/pantrytrack/internal/vision"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubExtractor returns a canned model reply or error.
type stubExtractor struct {
	raw   string
	err   error
	calls int
}

func (s *stubExtractor) Extract(_ context.Context, r io.Reader, _ string) (*vision.Result, error) {
	s.calls++
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return vision.NewResult(s.raw), nil
}

// stubPhotoStore is a minimal in-memory photostore.PhotoStore for tests.
type stubPhotoStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	saveErr error
	n       int
}

func newStubPhotoStore() *stubPhotoStore {
	return &stubPhotoStore{saved: make(map[string][]byte)}
}

func (s *stubPhotoStore) Save(_ context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, _ := io.ReadAll(r)
	s.n++
	key := prefix + "_" + string(rune('a'+s.n)) + photostore.ExtensionFor(mimeType)
	s.saved[key] = data
	return key, nil
}

func (s *stubPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.saved[key]
	if !ok {
		return nil, "", photostore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), photostore.MIMEFor(key), nil
}

func (s *stubPhotoStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, key)
	return nil
}

type testEnv struct {
	db         *sql.DB
	categories *CategoryService
	inventory  *InventoryService
	receipts   *ReceiptService
	shopping   *ShoppingService
	community  *CommunityService
	extractor  *stubExtractor
	photos     *stubPhotoStore
	metrics    *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	env := &testEnv{
		db:        d,
		extractor: &stubExtractor{},
		photos:    newStubPhotoStore(),
		metrics:   metrics.New(),
	}
	env.categories = NewCategoryService(store.NewCategoryStore(d))
	env.inventory = NewInventoryService(env.categories, store.NewFoodItemStore(d), env.metrics, discard)
	env.inventory.now = fixedNow
	env.receipts = NewReceiptService(env.categories, env.inventory, store.NewReceiptStore(d),
		env.extractor, env.photos, env.metrics, discard)
	env.receipts.now = fixedNow
	env.shopping = NewShoppingService(store.NewShoppingStore(d))
	env.community = NewCommunityService(store.NewCommunityStore(d))
	return env
}

var errBoom = errors.New("boom")
