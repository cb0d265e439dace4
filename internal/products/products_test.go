package products

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const offFound = `{
  "status": 1,
  "product": {
    "product_name": "",
    "product_name_ja": "おいしい牛乳",
    "brands": "Meiji",
    "categories_tags": ["en:dairies", "en:milks"],
    "image_url": "https://images.example/milk.jpg",
    "ingredients_text": "milk"
  }
}`

func newOFFServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/api/v0/product/4902705001234.json":
			_, _ = io.WriteString(w, offFound)
		case "/api/v0/product/0000000000000.json":
			_, _ = io.WriteString(w, `{"status":0,"status_verbose":"product not found"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenFoodFactsProduct(t *testing.T) {
	srv := newOFFServer(t, nil)
	off := NewOpenFoodFacts(srv.URL + "/")

	p, err := off.Product(context.Background(), "4902705001234")
	require.NoError(t, err)
	assert.Equal(t, &Product{
		Barcode:     "4902705001234",
		Name:        "おいしい牛乳",
		Brand:       "Meiji",
		Category:    "dairies",
		ImageURL:    "https://images.example/milk.jpg",
		Description: "milk",
	}, p)

	_, err = off.Product(context.Background(), "0000000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = off.Product(context.Background(), "1111111111111")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder("123456")
	assert.Equal(t, "Item (123456)", p.Name)
	assert.Equal(t, "other", p.Category)
	assert.True(t, p.Placeholder)
}

type stubSource struct {
	product *Product
	err     error
	calls   int
}

func (s *stubSource) Product(_ context.Context, _ string) (*Product, error) {
	s.calls++
	return s.product, s.err
}

func TestLookup(t *testing.T) {
	milk := &Product{Barcode: "4902705001234", Name: "Milk"}

	tests := []struct {
		name      string
		barcode   string
		src       *stubSource
		want      *Product
		wantCalls int
	}{
		{name: "found", barcode: "4902705001234", src: &stubSource{product: milk}, want: milk, wantCalls: 1},
		{name: "unknown", barcode: "4902705001234", src: &stubSource{err: ErrNotFound}, want: Placeholder("4902705001234"), wantCalls: 1},
		{name: "source down", barcode: "4902705001234", src: &stubSource{err: errors.New("boom")}, want: Placeholder("4902705001234"), wantCalls: 1},
		{name: "not a barcode", barcode: "../etc", src: &stubSource{product: milk}, want: Placeholder("../etc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lookup(context.Background(), tt.src, tt.barcode, discard)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, tt.src.calls)
		})
	}
}

func TestValidBarcode(t *testing.T) {
	assert.True(t, ValidBarcode("4902705001234"))
	assert.True(t, ValidBarcode("012345"))
	assert.False(t, ValidBarcode("12345"))
	assert.False(t, ValidBarcode("123456789012345"))
	assert.False(t, ValidBarcode("49027050O1234"))
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCache(t *testing.T) {
	mr, rdb := setupRedis(t)
	var calls atomic.Int32
	srv := newOFFServer(t, &calls)
	cache := NewCache(NewOpenFoodFacts(srv.URL), rdb, 24*time.Hour, discard)
	ctx := context.Background()

	first, err := cache.Product(ctx, "4902705001234")
	require.NoError(t, err)
	second, err := cache.Product(ctx, "4902705001234")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "second lookup must be served from redis")

	raw, err := mr.Get(cacheKeyPrefix + "4902705001234")
	require.NoError(t, err)
	var cached Product
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, "Meiji", cached.Brand)
	assert.Equal(t, 24*time.Hour, mr.TTL(cacheKeyPrefix+"4902705001234"))

	mr.FastForward(25 * time.Hour)
	_, err = cache.Product(ctx, "4902705001234")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "expired entry must be refetched")
}

func TestCache_DoesNotCacheMisses(t *testing.T) {
	mr, rdb := setupRedis(t)
	src := &stubSource{err: ErrNotFound}
	cache := NewCache(src, rdb, time.Hour, discard)

	_, err := cache.Product(context.Background(), "0000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists(cacheKeyPrefix+"0000000000000"))
}

func TestCache_RedisDown(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()
	src := &stubSource{product: &Product{Barcode: "4902705001234", Name: "Milk"}}
	cache := NewCache(src, rdb, time.Hour, discard)

	p, err := cache.Product(context.Background(), "4902705001234")
	require.NoError(t, err)
	assert.Equal(t, "Milk", p.Name)
}

func TestCache_CorruptEntry(t *testing.T) {
	mr, rdb := setupRedis(t)
	require.NoError(t, mr.Set(cacheKeyPrefix+"4902705001234", "{not json"))
	src := &stubSource{product: &Product{Barcode: "4902705001234", Name: "Milk"}}
	cache := NewCache(src, rdb, time.Hour, discard)

	p, err := cache.Product(context.Background(), "4902705001234")
	require.NoError(t, err)
	assert.Equal(t, "Milk", p.Name)
	assert.Equal(t, 1, src.calls)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = rdb.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
