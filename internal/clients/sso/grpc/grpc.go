package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ssov1 "github.com/Nergous/sso_protos/gen/go/sso"

	grpclog "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpcretry "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
)

var ErrInvalidToken = errors.New("invalid token")

// Client talks to the SSO service that guards the admin word API.
type Client struct {
	auth  ssov1.AuthClient
	conn  *grpc.ClientConn
	appID int32
	log   *slog.Logger
}

func New(
	ctx context.Context,
	log *slog.Logger,
	addr string,
	timeout time.Duration,
	retriesCount int,
	appID int32,
) (*Client, error) {
	const op = "grpc.New"

	retryOpts := []grpcretry.CallOption{
		grpcretry.WithCodes(codes.NotFound, codes.Aborted, codes.DeadlineExceeded),
		grpcretry.WithMax(uint(retriesCount)),
		grpcretry.WithPerRetryTimeout(timeout),
	}

	logOpts := []grpclog.Option{
		grpclog.WithLogOnEvents(grpclog.StartCall, grpclog.FinishCall),
	}

	cc, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(
			grpclog.UnaryClientInterceptor(InterceptorLogger(log), logOpts...),
			grpcretry.UnaryClientInterceptor(retryOpts...),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Client{
		auth:  ssov1.NewAuthClient(cc),
		conn:  cc,
		appID: appID,
		log:   log,
	}, nil
}

// InterceptorLogger adapts slog to the grpc middleware logger.
func InterceptorLogger(l *slog.Logger) grpclog.Logger {
	return grpclog.LoggerFunc(func(ctx context.Context, lvl grpclog.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Login exchanges admin credentials for an access token scoped to the bot's app.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	const op = "grpc.Login"

	resp, err := c.auth.Login(ctx, &ssov1.LoginRequest{Email: email, Password: password, AppId: c.appID})
	if err != nil {
		c.log.Error("sso.Login failed", slog.String("operation", op), slog.String("error", err.Error()))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return resp.GetToken(), nil
}

// Authorize resolves the owner of an access token and whether they may
// manage the word list. A token the SSO rejects yields ErrInvalidToken.
func (c *Client) Authorize(ctx context.Context, token string) (int64, bool, error) {
	const op = "grpc.Authorize"

	valid, err := c.auth.ValidateToken(ctx, &ssov1.ValidateTokenRequest{Token: token})
	if err != nil {
		c.log.Error("sso.ValidateToken failed", slog.String("operation", op), slog.String("error", err.Error()))
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	if !valid.GetValid() {
		return 0, false, ErrInvalidToken
	}

	admin, err := c.auth.IsAdmin(ctx, &ssov1.IsAdminRequest{UserId: valid.GetUserId()})
	if err != nil {
		c.log.Error("sso.IsAdmin failed", slog.String("operation", op), slog.String("error", err.Error()))
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	return valid.GetUserId(), admin.GetIsAdmin(), nil
}
