package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/scoutlink/backend/internal/auth"
	"github.com/scoutlink/backend/internal/domain"
	"github.com/scoutlink/backend/pkg/response"
)

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	AccountTypeKey contextKey = "account_type"
)

// AuthMiddleware validates the bearer token and puts the caller's identity
// on the request context.
func AuthMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := jwtManager.ValidateToken(parts[1])
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					response.Unauthorized(w, "token has expired")
					return
				}
				response.Unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.AccountID)
			ctx = context.WithValue(ctx, AccountTypeKey, claims.AccountType)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts the caller's account id from context.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetAccountType extracts the caller's account type from context.
func GetAccountType(ctx context.Context) (domain.AccountType, bool) {
	t, ok := ctx.Value(AccountTypeKey).(domain.AccountType)
	return t, ok
}
