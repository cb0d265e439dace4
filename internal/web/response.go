package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/pantrytrack/internal/domain"
	"github.com/vbonduro/pantrytrack/internal/validate"
	"github.com/vbonduro/pantrytrack/internal/vision"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

var extractionStatus = map[vision.ErrorKind]int{
	vision.KindConfigurationMissing: http.StatusServiceUnavailable,
	vision.KindRateLimited:          http.StatusTooManyRequests,
	vision.KindServiceUnavailable:   http.StatusBadGateway,
	vision.KindInvalidImage:         http.StatusBadRequest,
}

// writeServiceError maps a service error to a response. Unclassified errors
// are logged and answered with msg.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var xe *vision.ExtractionError
	switch {
	case errors.As(err, &xe):
		status, ok := extractionStatus[xe.Kind]
		if !ok {
			status = http.StatusBadGateway
		}
		s.logger.WarnContext(r.Context(), "extraction failed", "kind", xe.Kind, "error", err)
		writeJSON(w, status, errorResponse{Error: xe.UserMessage(), Kind: string(xe.Kind)})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrCategoryNotOwned):
		writeError(w, http.StatusBadRequest, "category not found")
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		writeError(w, http.StatusConflict, "receipt already confirmed")
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Fields: validate.Fields(err)})
	default:
		s.logger.ErrorContext(r.Context(), msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON reads a size-limited JSON body into T.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	return &req, true
}

// decodeValid decodes T and runs its validate tags, answering 422 with the
// offending fields on failure.
func decodeValid[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	req, ok := decodeJSON[T](w, r)
	if !ok {
		return nil, false
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Fields: validate.Fields(err),
		})
		return nil, false
	}
	return req, true
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// batchStatus is 201 when anything was created, 422 when every item failed,
// and 200 for an empty outcome such as a confirmation that rejected all.
func batchStatus(created int, failed bool) int {
	switch {
	case created > 0:
		return http.StatusCreated
	case failed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}
