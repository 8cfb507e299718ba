package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ssogrpc "hangman_bot/internal/clients/sso/grpc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) Authorize(ctx context.Context, token string) (int64, bool, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name         string
		header       string
		mockSetup    func(*MockAuthorizer)
		expectedCode int
	}{
		{
			name:         "missing header",
			mockSetup:    func(m *MockAuthorizer) {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "not a bearer token",
			header:       "Basic abc",
			mockSetup:    func(m *MockAuthorizer) {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:   "invalid token",
			header: "Bearer bad",
			mockSetup: func(m *MockAuthorizer) {
				m.On("Authorize", mock.Anything, "bad").Return(int64(0), false, ssogrpc.ErrInvalidToken)
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:   "sso unavailable",
			header: "Bearer good",
			mockSetup: func(m *MockAuthorizer) {
				m.On("Authorize", mock.Anything, "good").Return(int64(0), false, errors.New("unavailable"))
			},
			expectedCode: http.StatusInternalServerError,
		},
		{
			name:   "not an admin",
			header: "Bearer good",
			mockSetup: func(m *MockAuthorizer) {
				m.On("Authorize", mock.Anything, "good").Return(int64(7), false, nil)
			},
			expectedCode: http.StatusForbidden,
		},
		{
			name:   "admin",
			header: "Bearer good",
			mockSetup: func(m *MockAuthorizer) {
				m.On("Authorize", mock.Anything, "good").Return(int64(7), true, nil)
			},
			expectedCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authorizer := &MockAuthorizer{}
			tt.mockSetup(authorizer)
			m := NewAuthMiddleware(authorizer)

			var seenUser int64
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenUser, _ = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/admin/words", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			m.ValidateToken(m.RequireAdmin(next)).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, int64(7), seenUser)
			}
			authorizer.AssertExpectations(t)
		})
	}
}

func TestRequireAdmin_WithoutValidation(t *testing.T) {
	m := NewAuthMiddleware(&MockAuthorizer{})
	rec := httptest.NewRecorder()

	m.RequireAdmin(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
