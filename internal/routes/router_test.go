package routes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ssogrpc "hangman_bot/internal/clients/sso/grpc"
	"hangman_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWords struct {
	added []string
}

func (s *stubWords) Add(_ context.Context, key, desc string) (*models.Word, error) {
	s.added = append(s.added, key)
	return &models.Word{ID: int64(len(s.added)), Key: key, Description: desc}, nil
}

func (s *stubWords) List(context.Context) ([]models.Word, error) {
	return []models.Word{{ID: 1, Key: "яблоко", Description: "фрукт"}}, nil
}

type stubSSO struct {
	admin bool
}

func (s *stubSSO) Login(context.Context, string, string) (string, error) {
	return "access", nil
}

func (s *stubSSO) Authorize(_ context.Context, token string) (int64, bool, error) {
	if token != "good" {
		return 0, false, ssogrpc.ErrInvalidToken
	}
	return 1, s.admin, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetupRouter_WithoutSSO(t *testing.T) {
	words := &stubWords{}
	r := SetupRouter(newTestLogger(), words, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/words/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "яблоко")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetupRouter_WithSSO(t *testing.T) {
	tests := []struct {
		name         string
		admin        bool
		token        string
		expectedCode int
	}{
		{name: "no token", admin: true, expectedCode: http.StatusUnauthorized},
		{name: "bad token", admin: true, token: "bad", expectedCode: http.StatusUnauthorized},
		{name: "not an admin", admin: false, token: "good", expectedCode: http.StatusForbidden},
		{name: "admin", admin: true, token: "good", expectedCode: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := &stubWords{}
			r := SetupRouter(newTestLogger(), words, &stubSSO{admin: tt.admin})

			req := httptest.NewRequest(http.MethodPost, "/api/admin/words/",
				strings.NewReader(`{"key":"груша","desc":"фрукт"}`))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
			if tt.expectedCode == http.StatusCreated {
				assert.Equal(t, []string{"груша"}, words.added)
			} else {
				assert.Empty(t, words.added)
			}
		})
	}
}

func TestSetupRouter_Login(t *testing.T) {
	r := SetupRouter(newTestLogger(), &stubWords{}, &stubSSO{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"email":"Admin@Example.com ","password":"secret"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"access_token":"access"}`, rec.Body.String())
}
