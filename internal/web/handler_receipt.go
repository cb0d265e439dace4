package web

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/vbonduro/pantrytrack/internal/domain"
	"github.com/vbonduro/pantrytrack/internal/identity"
	"github.com/vbonduro/pantrytrack/internal/photostore"
	"github.com/vbonduro/pantrytrack/internal/reconcile"
)

// multipartOverhead is the slack allowed above the image limit for form
// boundaries and headers.
const multipartOverhead = 64 << 10

// allowedImageTypes is the set of MIME types accepted for receipt images.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

type analyzeResponse struct {
	ReceiptID      int64                  `json:"receiptId"`
	ImageReference string                 `json:"imageReference"`
	RawText        string                 `json:"rawText"`
	ExtractedItems []domain.CandidateItem `json:"extractedItems"`
	Drafts         []reconcile.Draft      `json:"drafts"`
	Stage          string                 `json:"stage"`
}

// receiptFile returns the uploaded image part. Both "receipt" and "image"
// field names are accepted.
func receiptFile(r *http.Request) (multipart.File, error) {
	file, _, err := r.FormFile("receipt")
	if errors.Is(err, http.ErrMissingFile) {
		file, _, err = r.FormFile("image")
	}
	return file, err
}

func (s *Server) handleAnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	owner := identity.OwnerID(r.Context())
	maxBytes := s.opts.MaxImageBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, err := receiptFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "receipt image file required")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "read upload failed", "owner_id", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	if int64(len(imageData)) > maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	analysis, err := s.svc.Receipts.Analyze(r.Context(), owner, imageData, mimeType)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to analyze receipt")
		return
	}

	writeJSON(w, http.StatusCreated, analyzeResponse{
		ReceiptID:      analysis.Receipt.ID,
		ImageReference: analysis.Receipt.ImageReference,
		RawText:        analysis.Receipt.RawText,
		ExtractedItems: analysis.Receipt.ExtractedItems,
		Drafts:         analysis.Drafts,
		Stage:          string(analysis.Stage),
	})
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.svc.Receipts.List(r.Context(), identity.OwnerID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list receipts")
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	receipt, err := s.svc.Receipts.Get(r.Context(), identity.OwnerID(r.Context()), id)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to get receipt")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleReceiptDrafts(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	drafts, err := s.svc.Receipts.Drafts(r.Context(), identity.OwnerID(r.Context()), id)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to build drafts")
		return
	}
	writeJSON(w, http.StatusOK, drafts)
}

func (s *Server) handleReceiptImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	receipt, err := s.svc.Receipts.Get(r.Context(), identity.OwnerID(r.Context()), id)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to get receipt")
		return
	}
	if receipt.ImageReference == "" {
		writeError(w, http.StatusNotFound, "receipt has no image")
		return
	}

	reader, mimeType, err := s.photoStore.Get(r.Context(), receipt.ImageReference)
	if err != nil {
		if errors.Is(err, photostore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "receipt image not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "get receipt image failed", "receipt_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get receipt image")
		return
	}
	defer closeWithLog(reader, "receipt image", s.logger)

	w.Header().Set("Content-Type", mimeType)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.ErrorContext(r.Context(), "write receipt image failed", "receipt_id", id, "error", err)
	}
}

type confirmRequest struct {
	Decisions []reconcile.Decision `json:"decisions"`
}

func (s *Server) handleConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	req, ok := decodeJSON[confirmRequest](w, r)
	if !ok {
		return
	}
	result, err := s.svc.Receipts.Confirm(r.Context(), identity.OwnerID(r.Context()), id, req.Decisions)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to confirm receipt")
		return
	}
	writeJSON(w, batchStatus(result.CreatedCount, result.Failed()), result)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
