package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/dom/account-api/internal/api/response"
	"github.com/dom/account-api/internal/service"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	TokenKey  contextKey = "token"
)

// Auth requires a valid, non-invalidated bearer token and puts the caller's
// user ID and raw token on the request context.
func Auth(tokens *service.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r)
			if err != nil {
				response.Error(w, "middleware.Auth", err)
				return
			}

			userID, err := tokens.Authenticate(r.Context(), raw)
			if err != nil {
				log.Printf("ERROR [middleware.Auth] token validation failed: %v", err)
				response.Error(w, "middleware.Auth", err)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, TokenKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", service.ErrTokenMissing
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", service.ErrTokenInvalid
	}
	return parts[1], nil
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}
