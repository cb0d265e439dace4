package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vbonduro/pantrytrack/internal/domain"
	"github.com/vbonduro/pantrytrack/internal/identity"
	"github.com/vbonduro/pantrytrack/internal/reconcile"
)

const defaultExpiringDays = 3

func (s *Server) handleListFoodItems(w http.ResponseWriter, r *http.Request) {
	var categoryID *int64
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid categoryId")
			return
		}
		categoryID = &id
	}

	items, err := s.svc.Inventory.List(r.Context(), identity.OwnerID(r.Context()), categoryID)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list food items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateFoodItem(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[reconcile.BatchItem](w, r)
	if !ok {
		return
	}
	item, err := s.svc.Inventory.Create(r.Context(), identity.OwnerID(r.Context()), *req)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create food item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleBatchFoodItems commits a reviewed list of items, sent bare or as
// {"items": [...]}. Each item stands on its own, down to decoding; the
// response lists what was created and why the rest failed.
func (s *Server) handleBatchFoodItems(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	items, rejected, err := reconcile.DecodeBatch(body)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to decode batch")
		return
	}
	result, err := s.svc.Inventory.CommitDecoded(r.Context(), identity.OwnerID(r.Context()), items, rejected)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to commit batch")
		return
	}
	writeJSON(w, batchStatus(result.CreatedCount, result.Failed()), result)
}

type updateFoodItemRequest struct {
	Name       *string `json:"name" validate:"omitnil,min=1,max=200"`
	CategoryID *int64  `json:"categoryId" validate:"omitnil,gt=0"`
	Quantity   *int    `json:"quantity" validate:"omitnil,gte=1"`
	Unit       *string `json:"unit" validate:"omitnil,max=32"`
	ExpiryDate *string `json:"expiryDate" validate:"omitnil,datetime=2006-01-02"`
}

func (s *Server) handleUpdateFoodItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid food item id")
		return
	}
	req, ok := decodeValid[updateFoodItemRequest](w, r)
	if !ok {
		return
	}

	upd := domain.FoodItemUpdate{
		CategoryID: req.CategoryID,
		Name:       req.Name,
		Quantity:   req.Quantity,
		Unit:       req.Unit,
	}
	if req.ExpiryDate != nil {
		// Validated above.
		t, _ := time.Parse(domain.DateLayout, *req.ExpiryDate)
		upd.ExpiryDate = &t
	}

	item, err := s.svc.Inventory.Update(r.Context(), identity.OwnerID(r.Context()), id, upd)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to update food item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteFoodItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid food item id")
		return
	}
	if err := s.svc.Inventory.Delete(r.Context(), identity.OwnerID(r.Context()), id); err != nil {
		s.writeServiceError(w, r, err, "failed to delete food item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExpiringFoodItems(w http.ResponseWriter, r *http.Request) {
	days := defaultExpiringDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = n
	}

	items, err := s.svc.Inventory.Expiring(r.Context(), identity.OwnerID(r.Context()), days)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list expiring items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type fixExpiryResponse struct {
	UpdatedCount int `json:"updatedCount"`
}

func (s *Server) handleFixExpiryDates(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Inventory.RecomputeExpiry(r.Context(), identity.OwnerID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to fix expiry dates")
		return
	}
	writeJSON(w, http.StatusOK, fixExpiryResponse{UpdatedCount: n})
}

func (s *Server) handleNutritionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Inventory.NutritionSummary(r.Context(), identity.OwnerID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to summarise nutrition")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
