package web

import (
	"net/http"

	"github.com/vbonduro/pantrytrack/internal/identity"
	"github.com/vbonduro/pantrytrack/internal/service"
)

type createShoppingItemRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Quantity int    `json:"quantity" validate:"gte=0"`
	Unit     string `json:"unit" validate:"max=32"`
}

type updateShoppingItemRequest struct {
	Name      *string `json:"name" validate:"omitnil,min=1,max=200"`
	Quantity  *int    `json:"quantity" validate:"omitnil,gte=1"`
	Unit      *string `json:"unit" validate:"omitnil,max=32"`
	Completed *bool   `json:"completed"`
}

func (s *Server) handleListShoppingItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Shopping.List(r.Context(), identity.OwnerID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list shopping items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateShoppingItem(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[createShoppingItemRequest](w, r)
	if !ok {
		return
	}
	item, err := s.svc.Shopping.Create(r.Context(), identity.OwnerID(r.Context()), req.Name, req.Quantity, req.Unit)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create shopping item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateShoppingItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shopping item id")
		return
	}
	req, ok := decodeValid[updateShoppingItemRequest](w, r)
	if !ok {
		return
	}
	item, err := s.svc.Shopping.Update(r.Context(), identity.OwnerID(r.Context()), id, service.ShoppingUpdate{
		Name:      req.Name,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		Completed: req.Completed,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "failed to update shopping item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteShoppingItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shopping item id")
		return
	}
	if err := s.svc.Shopping.Delete(r.Context(), identity.OwnerID(r.Context()), id); err != nil {
		s.writeServiceError(w, r, err, "failed to delete shopping item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
