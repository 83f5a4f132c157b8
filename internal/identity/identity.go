// Package identity resolves the authenticated caller from a bearer token
// issued by the external identity provider. The core only ever consumes
// the resulting Actor value; token issuance and session management live
// outside this service.
package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"stockroom/internal/domain"
)

type contextKey struct{}

var actorKey contextKey

type Claims struct {
	Email   string `json:"email"`
	Role    string `json:"role"`
	StoreID string `json:"storeId,omitempty"`
	jwt.RegisteredClaims
}

type Middleware struct {
	secret []byte
	logger *zap.Logger
}

func NewMiddleware(secret string, logger *zap.Logger) *Middleware {
	return &Middleware{
		secret: []byte(secret),
		logger: logger,
	}
}

// Authenticate rejects requests without a valid bearer token and stores
// the resolved Actor in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			m.logger.Warn("rejected bearer token", zap.Error(err))
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
			return
		}

		actor := domain.Actor{
			ID:              claims.Subject,
			Email:           claims.Email,
			Role:            claims.Role,
			AssignedStoreID: claims.StoreID,
		}
		if actor.ID == "" {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token has no subject")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireAdmin gates admin-only routes. It must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		if !actor.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
