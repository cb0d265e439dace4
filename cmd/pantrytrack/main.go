package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/pantrytrack/internal/config"
	"github.com/vbonduro/pantrytrack/internal/db"
	"github.com/vbonduro/pantrytrack/internal/logging"
	"github.com/vbonduro/pantrytrack/internal/metrics"
	"github.com/vbonduro/pantrytrack/internal/photostore"
	"github.com/vbonduro/pantrytrack/internal/photostore/local"
	s3store "github.com/vbonduro/pantrytrack/internal/photostore/s3"
	"github.com/vbonduro/pantrytrack/internal/products"
	"github.com/vbonduro/pantrytrack/internal/service"
	"github.com/vbonduro/pantrytrack/internal/store"
	"github.com/vbonduro/pantrytrack/internal/telemetry"
	"github.com/vbonduro/pantrytrack/internal/vision"
	claudevision "github.com/vbonduro/pantrytrack/internal/vision/claude"
	geminivision "github.com/vbonduro/pantrytrack/internal/vision/gemini"
	ollamavision "github.com/vbonduro/pantrytrack/internal/vision/ollama"
	"github.com/vbonduro/pantrytrack/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("pantrytrack exited", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var traceOut io.Writer
	if cfg.OtelStdout {
		traceOut = os.Stdout
	}
	shutdownTracing, err := telemetry.Setup(traceOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	photoStg, err := newPhotoStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	productSource, closeProducts := newProductSource(ctx, cfg, logger)
	defer closeProducts()

	m := metrics.New()
	extractor := vision.WithGuards(newExtractor(cfg, logger), vision.GuardOptions{
		MaxImageBytes:  cfg.MaxImageBytes,
		Timeout:        cfg.ExtractTimeout,
		MaxAttempts:    cfg.ExtractMaxAttempts,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	}, logger)

	categories := service.NewCategoryService(store.NewCategoryStore(database))
	inventory := service.NewInventoryService(categories, store.NewFoodItemStore(database), m, logger)
	svc := web.Services{
		Categories: categories,
		Inventory:  inventory,
		Receipts: service.NewReceiptService(categories, inventory, store.NewReceiptStore(database),
			extractor, photoStg, m, logger),
		Shopping:  service.NewShoppingService(store.NewShoppingStore(database)),
		Community: service.NewCommunityService(store.NewCommunityStore(database)),
	}

	server := web.NewServer(svc, store.NewUserStore(database), productSource, photoStg, m, database, web.Options{
		AuthRequired:    cfg.AuthRequired,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		MaxImageBytes:   cfg.MaxImageBytes,
	}, logger)
	srv := server.HTTPServer(cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "vision_backend", cfg.VisionBackend, "photo_backend", cfg.PhotoBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newExtractor picks the vision backend. A missing API key is not fatal: the
// extractor reports ConfigurationMissing on use so the rest of the API works.
func newExtractor(cfg *config.Config, logger *slog.Logger) vision.Extractor {
	if cfg.VisionBackend != "ollama" && cfg.VisionAPIKey() == "" {
		logger.Warn("vision API key is not set; receipt analysis will fail", "backend", cfg.VisionBackend)
	}
	switch cfg.VisionBackend {
	case "claude":
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeExtractor(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaExtractor(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("using Gemini vision backend", "model", cfg.GeminiModel)
		return geminivision.NewGeminiExtractor(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}

func newPhotoStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (photostore.PhotoStore, error) {
	if cfg.PhotoBackend == "s3" {
		logger.Info("using S3 photo store", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		return s3store.NewS3PhotoStore(ctx, s3store.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}, logger)
	}
	logger.Info("using local photo store", "path", cfg.PhotoPath)
	return local.NewLocalPhotoStore(cfg.PhotoPath, logger)
}

// newProductSource wraps Open Food Facts in the Redis cache when REDIS_URL
// is set. An unreachable Redis only disables caching.
func newProductSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (products.Source, func()) {
	off := products.NewOpenFoodFacts(cfg.OpenFoodFactsURL)
	if cfg.RedisURL == "" {
		return off, func() {}
	}
	rdb, err := products.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("product cache disabled", "error", err)
		return off, func() {}
	}
	logger.Info("product cache enabled", "ttl", cfg.ProductCacheTTL)
	return products.NewCache(off, rdb, cfg.ProductCacheTTL, logger), func() {
		if err := rdb.Close(); err != nil {
			logger.Error("failed to close redis", "error", err)
		}
	}
}
