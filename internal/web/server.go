package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vbonduro/pantrytrack/internal/identity"
	"github.com/vbonduro/pantrytrack/internal/metrics"
	"github.com/vbonduro/pantrytrack/internal/photostore"
	"github.com/vbonduro/pantrytrack/internal/products"
	"github.com/vbonduro/pantrytrack/internal/service"
	"github.com/vbonduro/pantrytrack/internal/telemetry"
)

// Services are the use cases the API exposes.
type Services struct {
	Categories *service.CategoryService
	Inventory  *service.InventoryService
	Receipts   *service.ReceiptService
	Shopping   *service.ShoppingService
	Community  *service.CommunityService
}

type Options struct {
	AuthRequired    bool
	CORSOrigins     string
	RateLimitPerMin int
	MaxImageBytes   int64
}

type userEnsurer interface {
	Ensure(ctx context.Context, id string) error
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	svc        Services
	users      userEnsurer
	products   products.Source
	photoStore photostore.PhotoStore
	metrics    *metrics.Metrics
	db         pinger
	opts       Options
	logger     *slog.Logger
	handler    http.Handler
}

func NewServer(
	svc Services,
	users userEnsurer,
	productSource products.Source,
	ps photostore.PhotoStore,
	m *metrics.Metrics,
	db pinger,
	opts Options,
	logger *slog.Logger,
) *Server {
	if opts.RateLimitPerMin <= 0 {
		opts.RateLimitPerMin = 120
	}
	s := &Server{
		svc:        svc,
		users:      users,
		products:   productSource,
		photoStore: ps,
		metrics:    m,
		db:         db,
		opts:       opts,
		logger:     logger,
	}
	s.handler = otelhttp.NewHandler(s.routes(), telemetry.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(s.logger),
		middleware.Recoverer,
		rateLimit(s.opts.RateLimitPerMin),
		corsMiddleware(s.opts.CORSOrigins),
		securityHeaders(),
	)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(s.opts.AuthRequired, s.users, s.logger))

		r.Route("/receipts", func(r chi.Router) {
			r.Post("/analyze", s.handleAnalyzeReceipt)
			r.Get("/", s.handleListReceipts)
			r.Get("/{id}", s.handleGetReceipt)
			r.Get("/{id}/drafts", s.handleReceiptDrafts)
			r.Get("/{id}/image", s.handleReceiptImage)
			r.Post("/{id}/confirm", s.handleConfirmReceipt)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/init", s.handleInitCategories)
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
		})

		r.Route("/food-items", func(r chi.Router) {
			r.Get("/", s.handleListFoodItems)
			r.Post("/", s.handleCreateFoodItem)
			r.Post("/batch", s.handleBatchFoodItems)
			r.Get("/expiring", s.handleExpiringFoodItems)
			r.Post("/fix-expiry-dates", s.handleFixExpiryDates)
			r.Patch("/{id}", s.handleUpdateFoodItem)
			r.Delete("/{id}", s.handleDeleteFoodItem)
		})

		r.Get("/nutrition/summary", s.handleNutritionSummary)
		r.Get("/products/{barcode}", s.handleLookupProduct)

		r.Route("/shopping-items", func(r chi.Router) {
			r.Get("/", s.handleListShoppingItems)
			r.Post("/", s.handleCreateShoppingItem)
			r.Patch("/{id}", s.handleUpdateShoppingItem)
			r.Delete("/{id}", s.handleDeleteShoppingItem)
		})

		r.Route("/community/posts", func(r chi.Router) {
			r.Get("/", s.handleListPosts)
			r.Post("/", s.handleCreatePost)
			r.Post("/{id}/like", s.handleLikePost)
		})

		r.Get("/feedback", s.handleListFeedback)
		r.Post("/feedback", s.handleCreateFeedback)
	})

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// HTTPServer returns an *http.Server for addr. Write timeouts leave room for
// a slow extraction with retries.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.ErrorContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
