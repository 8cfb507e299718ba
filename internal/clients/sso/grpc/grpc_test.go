package grpc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	ssov1 "github.com/Nergous/sso_protos/gen/go/sso"

	grpclog "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// MockAuthClient мокает только те вызовы SSO, которые нужны боту.
type MockAuthClient struct {
	ssov1.AuthClient
	mock.Mock
}

func (m *MockAuthClient) Login(ctx context.Context, in *ssov1.LoginRequest, _ ...grpc.CallOption) (*ssov1.LoginResponse, error) {
	args := m.Called(ctx, in.GetEmail(), in.GetPassword(), in.GetAppId())
	res, _ := args.Get(0).(*ssov1.LoginResponse)
	return res, args.Error(1)
}

func (m *MockAuthClient) ValidateToken(ctx context.Context, in *ssov1.ValidateTokenRequest, _ ...grpc.CallOption) (*ssov1.ValidateTokenResponse, error) {
	args := m.Called(ctx, in.GetToken())
	res, _ := args.Get(0).(*ssov1.ValidateTokenResponse)
	return res, args.Error(1)
}

func (m *MockAuthClient) IsAdmin(ctx context.Context, in *ssov1.IsAdminRequest, _ ...grpc.CallOption) (*ssov1.IsAdminResponse, error) {
	args := m.Called(ctx, in.GetUserId())
	res, _ := args.Get(0).(*ssov1.IsAdminResponse)
	return res, args.Error(1)
}

func setupClient() (*Client, *MockAuthClient) {
	auth := &MockAuthClient{}
	return &Client{
		auth:  auth,
		appID: 3,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, auth
}

func TestInterceptorLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	l := InterceptorLogger(logger)
	l.Log(context.Background(), grpclog.LevelInfo, "finished call", "grpc.method", "IsAdmin")
	l.Log(context.Background(), grpclog.LevelDebug, "started call", "grpc.method", "IsAdmin")

	out := buf.String()
	assert.Contains(t, out, "finished call")
	assert.Contains(t, out, "grpc.method=IsAdmin")
	assert.NotContains(t, out, "started call")
}

func TestClient_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, auth := setupClient()
		auth.On("Login", mock.Anything, "admin@mail.ru", "secret", int32(3)).
			Return(&ssov1.LoginResponse{Token: "jwt"}, nil)

		token, err := c.Login(context.Background(), "admin@mail.ru", "secret")
		require.NoError(t, err)
		assert.Equal(t, "jwt", token)
		auth.AssertExpectations(t)
	})

	t.Run("rejected", func(t *testing.T) {
		c, auth := setupClient()
		auth.On("Login", mock.Anything, "admin@mail.ru", "wrong", int32(3)).
			Return(nil, errors.New("invalid credentials"))

		_, err := c.Login(context.Background(), "admin@mail.ru", "wrong")
		assert.ErrorContains(t, err, "invalid credentials")
	})
}

func TestClient_Authorize(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		c, auth := setupClient()
		auth.On("ValidateToken", mock.Anything, "jwt").
			Return(&ssov1.ValidateTokenResponse{UserId: 7, Valid: true}, nil)
		auth.On("IsAdmin", mock.Anything, int64(7)).
			Return(&ssov1.IsAdminResponse{IsAdmin: true}, nil)

		userID, isAdmin, err := c.Authorize(context.Background(), "jwt")
		require.NoError(t, err)
		assert.Equal(t, int64(7), userID)
		assert.True(t, isAdmin)
	})

	t.Run("invalid token skips admin check", func(t *testing.T) {
		c, auth := setupClient()
		auth.On("ValidateToken", mock.Anything, "old").
			Return(&ssov1.ValidateTokenResponse{Valid: false}, nil)

		_, _, err := c.Authorize(context.Background(), "old")
		assert.ErrorIs(t, err, ErrInvalidToken)
		auth.AssertNotCalled(t, "IsAdmin", mock.Anything, mock.Anything)
	})

	t.Run("sso unavailable", func(t *testing.T) {
		c, auth := setupClient()
		auth.On("ValidateToken", mock.Anything, "jwt").
			Return(&ssov1.ValidateTokenResponse{UserId: 7, Valid: true}, nil)
		auth.On("IsAdmin", mock.Anything, int64(7)).Return(nil, errors.New("unavailable"))

		_, _, err := c.Authorize(context.Background(), "jwt")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)
	})
}
