package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/pantrytrack/internal/domain"
	"github.com/vbonduro/pantrytrack/internal/metrics"
	"github.com/vbonduro/pantrytrack/internal/photostore"
	"github.com/vbonduro/pantrytrack/internal/reconcile"
	"github.com/vbonduro/pantrytrack/internal/vision"
)

const receiptKeyPrefix = "receipt"

type ReceiptService struct {
	categories *CategoryService
	inventory  *InventoryService
	receipts   receiptRepository
	extractor  vision.Extractor
	photoStg   photostore.PhotoStore
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewReceiptService(
	categories *CategoryService,
	inventory *InventoryService,
	receipts receiptRepository,
	extractor vision.Extractor,
	photoStg photostore.PhotoStore,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ReceiptService {
	return &ReceiptService{
		categories: categories,
		inventory:  inventory,
		receipts:   receipts,
		extractor:  extractor,
		photoStg:   photoStg,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Analysis is the outcome of reading one receipt: the stored record and the
// drafts the user confirms from.
type Analysis struct {
	Receipt *domain.Receipt
	Drafts  []reconcile.Draft
	Stage   vision.Stage
}

// Analyze extracts candidates from a receipt image, keeps the image and a
// write-once receipt record, and builds drafts. A receipt with no
// recognisable items is still recorded so its raw text can be audited.
func (s *ReceiptService) Analyze(ctx context.Context, ownerID string, imageData []byte, mimeType string) (*Analysis, error) {
	s.logger.InfoContext(ctx, "receipt analysis started", "owner_id", ownerID, "mime_type", mimeType, "bytes", len(imageData))

	cats, err := s.categories.Init(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	result, err := s.extractor.Extract(ctx, bytes.NewReader(imageData), mimeType)
	if err != nil {
		if kind, ok := vision.KindOf(err); ok {
			s.metrics.ExtractionFailed(string(kind))
		}
		return nil, fmt.Errorf("failed to extract receipt: %w", err)
	}
	s.metrics.ExtractionSucceeded(string(result.Stage))
	s.logger.InfoContext(ctx, "receipt extraction complete",
		"owner_id", ownerID, "stage", result.Stage, "items_detected", len(result.Items))

	imageRef, err := s.photoStg.Save(ctx, receiptKeyPrefix, mimeType, bytes.NewReader(imageData))
	if err != nil {
		// The extraction is worth keeping even without the image.
		s.logger.ErrorContext(ctx, "failed to save receipt image", "owner_id", ownerID, "error", err)
		imageRef = ""
	}

	receipt, err := s.receipts.Create(ctx, ownerID, imageRef, result.RawText, result.Items)
	if err != nil {
		if imageRef != "" {
			if derr := s.photoStg.Delete(ctx, imageRef); derr != nil {
				s.logger.ErrorContext(ctx, "failed to roll back receipt image", "storage_key", imageRef, "error", derr)
			}
		}
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}

	drafts, err := reconcile.Drafts(receipt.ExtractedItems, cats, today(s.now))
	if err != nil {
		return nil, err
	}

	return &Analysis{Receipt: receipt, Drafts: drafts, Stage: result.Stage}, nil
}

func (s *ReceiptService) List(ctx context.Context, ownerID string) ([]*domain.Receipt, error) {
	receipts, err := s.receipts.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if receipts == nil {
		receipts = []*domain.Receipt{}
	}
	return receipts, nil
}

func (s *ReceiptService) Get(ctx context.Context, ownerID string, id int64) (*domain.Receipt, error) {
	receipt, err := s.receipts.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, fmt.Errorf("receipt %d: %w", id, domain.ErrNotFound)
	}
	return receipt, nil
}

// Drafts rebuilds the drafts of a stored receipt against the owner's
// current categories.
func (s *ReceiptService) Drafts(ctx context.Context, ownerID string, id int64) ([]reconcile.Draft, error) {
	receipt, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	cats, err := s.categories.Init(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return reconcile.Drafts(receipt.ExtractedItems, cats, today(s.now))
}

// Confirm resolves the stored candidates of a receipt with the user's
// decisions and commits the result. Failure indexes refer to the receipt's
// candidate list. A receipt is confirmed once; later calls return
// domain.ErrAlreadyConfirmed and create nothing.
func (s *ReceiptService) Confirm(ctx context.Context, ownerID string, id int64, decisions []reconcile.Decision) (*BatchResult, error) {
	receipt, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	cats, err := s.categories.Init(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := today(s.now)
	drafts, err := reconcile.Drafts(receipt.ExtractedItems, cats, now)
	if err != nil {
		return nil, err
	}
	resolved, failures := reconcile.Resolve(drafts, decisions, cats, now)
	if err := s.receipts.MarkConfirmed(ctx, ownerID, id); err != nil {
		return nil, err
	}
	if len(resolved) == 0 && len(failures) == 0 {
		return &BatchResult{Items: []*domain.FoodItem{}, Failures: []reconcile.Failure{}}, nil
	}
	result, err := s.inventory.commit(ctx, ownerID, resolved, failures)
	if err != nil {
		if cerr := s.receipts.ClearConfirmation(ctx, ownerID, id); cerr != nil {
			s.logger.ErrorContext(ctx, "failed to clear receipt confirmation", "receipt_id", id, "error", cerr)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "receipt confirmed",
		"owner_id", ownerID, "receipt_id", id, "accepted", len(resolved), "rejected_or_invalid", len(drafts)-len(resolved))
	return result, nil
}
