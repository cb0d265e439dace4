package identity

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

const maxIDLen = 128

type ctxKey struct{}

// WithOwner returns a context carrying ownerID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ownerID)
}

// OwnerID returns the owner set by Middleware, or the guest owner.
func OwnerID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return domain.GuestOwnerID
}

type userEnsurer interface {
	Ensure(ctx context.Context, id string) error
}

// Middleware resolves the request owner from X-User-ID and records the user
// on first sight. Without the header the request acts as the guest owner,
// unless authRequired is set, in which case it is rejected with 401.
func Middleware(authRequired bool, users userEnsurer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderUserID))
			switch {
			case id == "" && authRequired:
				writeError(w, http.StatusUnauthorized, HeaderUserID+" header is required")
				return
			case id == "":
				id = domain.GuestOwnerID
			case len(id) > maxIDLen:
				writeError(w, http.StatusBadRequest, HeaderUserID+" header is too long")
				return
			}

			if err := users.Ensure(r.Context(), id); err != nil {
				logger.ErrorContext(r.Context(), "failed to ensure user", "owner_id", id, "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), id)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
