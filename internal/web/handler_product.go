package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/pantrytrack/internal/products"
)

// handleLookupProduct always answers 200: an unknown or unreachable product
// comes back as a placeholder the user can rename.
func (s *Server) handleLookupProduct(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	writeJSON(w, http.StatusOK, products.Lookup(r.Context(), s.products, barcode, s.logger))
}
