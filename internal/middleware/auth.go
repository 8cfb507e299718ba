package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	ssogrpc "hangman_bot/internal/clients/sso/grpc"
)

// Authorizer resolves an admin API bearer token through the SSO service.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (userID int64, isAdmin bool, err error)
}

type AuthMiddleware struct {
	sso Authorizer
}

func NewAuthMiddleware(client Authorizer) *AuthMiddleware {
	return &AuthMiddleware{sso: client}
}

type contextKey string

const (
	UserIDKey  = contextKey("userID")
	IsAdminKey = contextKey("isAdmin")
)

func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

func (m *AuthMiddleware) ValidateToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "Отсутствует или неправильный заголовок авторизации", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		userID, isAdmin, err := m.sso.Authorize(r.Context(), token)
		if errors.Is(err, ssogrpc.ErrInvalidToken) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, "ошибка распознавания прав", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		ctx = context.WithValue(ctx, IsAdminKey, isAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests whose validated user is not an admin of the app.
// It must run after ValidateToken.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isAdmin, ok := r.Context().Value(IsAdminKey).(bool)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !isAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
