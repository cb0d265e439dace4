package web

import (
	"net/http"

	"github.com/vbonduro/pantrytrack/internal/identity"
)

// handleInitCategories creates the canonical categories for the owner if
// they have none. Calling it again is a no-op.
func (s *Server) handleInitCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories.Init(r.Context(), identity.OwnerID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to initialise categories")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories.List(r.Context(), identity.OwnerID(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

type createCategoryRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Icon  string `json:"icon" validate:"max=50"`
	Color string `json:"color" validate:"max=20"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[createCategoryRequest](w, r)
	if !ok {
		return
	}
	cat, err := s.svc.Categories.Create(r.Context(), identity.OwnerID(r.Context()), req.Name, req.Icon, req.Color)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to create category")
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}
