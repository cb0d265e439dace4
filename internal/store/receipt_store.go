package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

// ReceiptStore persists the write-once audit trail of extractions. It has no
// update method and the schema rejects updates.
type ReceiptStore struct {
	db *sql.DB
}

func NewReceiptStore(db *sql.DB) *ReceiptStore {
	return &ReceiptStore{db: db}
}

const receiptColumns = `id, owner_id, image_reference, raw_text, extracted_items, created_at`

func scanReceipt(row rowScanner) (*domain.Receipt, error) {
	r := &domain.Receipt{}
	var items string
	if err := row.Scan(&r.ID, &r.OwnerID, &r.ImageReference, &r.RawText, &items, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &r.ExtractedItems); err != nil {
		return nil, fmt.Errorf("failed to decode extracted items: %w", err)
	}
	if r.ExtractedItems == nil {
		r.ExtractedItems = []domain.CandidateItem{}
	}
	return r, nil
}

func (s *ReceiptStore) Create(ctx context.Context, ownerID, imageRef, rawText string, items []domain.CandidateItem) (*domain.Receipt, error) {
	if items == nil {
		items = []domain.CandidateItem{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extracted items: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (owner_id, image_reference, raw_text, extracted_items) VALUES (?, ?, ?, ?)
	`, ownerID, imageRef, rawText, string(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, ownerID, id)
}

func (s *ReceiptStore) GetByID(ctx context.Context, ownerID string, id int64) (*domain.Receipt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+receiptColumns+` FROM receipts WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	r, err := scanReceipt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return r, nil
}

// MarkConfirmed records that the owner confirmed receipt id. A receipt is
// confirmed at most once; a second call returns domain.ErrAlreadyConfirmed.
func (s *ReceiptStore) MarkConfirmed(ctx context.Context, ownerID string, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO receipt_confirmations (receipt_id, owner_id)
		SELECT id, owner_id FROM receipts WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to confirm receipt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		exists, err := s.GetByID(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if exists == nil {
			return fmt.Errorf("receipt %d: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("receipt %d: %w", id, domain.ErrAlreadyConfirmed)
	}

	return nil
}

// ClearConfirmation undoes MarkConfirmed so the receipt can be confirmed again.
func (s *ReceiptStore) ClearConfirmation(ctx context.Context, ownerID string, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM receipt_confirmations WHERE receipt_id = ? AND owner_id = ?
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to clear receipt confirmation: %w", err)
	}
	return nil
}

// List returns the owner's receipts, newest first.
func (s *ReceiptStore) List(ctx context.Context, ownerID string) ([]*domain.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+receiptColumns+` FROM receipts WHERE owner_id = ? ORDER BY id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer closeRows(rows)

	var receipts []*domain.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipts: %w", err)
	}

	return receipts, nil
}
