package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/storage"
)

type contextKey string

const APIKeyContextKey contextKey = "api_key"

// Auth resolves the bearer API key and stores it, with its organization, in the request context.
func Auth(store storage.Storage, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, ok := bearerToken(w, r)
			if !ok {
				return
			}

			ctx := r.Context()
			storedKey, err := store.GetAPIKeyByHash(ctx, HashAPIKey(apiKey))
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid API key")
					return
				}
				logger.Error("api key lookup failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error")
				return
			}

			// Update last used timestamp (fire and forget)
			go func(id string) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := store.UpdateAPIKeyLastUsed(ctx, id); err != nil {
					logger.Warn("updating api key last use failed", zap.String("key_id", id), zap.Error(err))
				}
			}(storedKey.ID)

			ctx = context.WithValue(ctx, APIKeyContextKey, storedKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Admin guards the organization management routes with the static admin key.
// An empty adminKey disables those routes.
func Admin(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				writeError(w, http.StatusForbidden, domain.ErrCodeUnauthorized, "admin API is disabled")
				return
			}
			token, ok := bearerToken(w, r)
			if !ok {
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(adminKey)) != 1 {
				writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "missing authorization header")
		return "", false
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid authorization header format")
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "empty API key")
		return "", false
	}
	return token, true
}

// HashAPIKey creates a SHA-256 hash of the API key.
// SHA-256 is enough here since API keys are already high-entropy random strings.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// GetAPIKeyFromContext retrieves the API key from the request context.
func GetAPIKeyFromContext(ctx context.Context) *domain.APIKey {
	key, _ := ctx.Value(APIKeyContextKey).(*domain.APIKey)
	return key
}

// OrganizationID returns the organization of the authenticated API key, or "".
func OrganizationID(ctx context.Context) string {
	if key := GetAPIKeyFromContext(ctx); key != nil {
		return key.OrganizationID
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.StandardErrorResponse{
		Error: domain.StandardError{Code: code, Message: message},
	})
}
