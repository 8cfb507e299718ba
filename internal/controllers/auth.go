package controllers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type SSOClient interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// AuthController issues admin API tokens through the SSO service.
type AuthController struct {
	log    *slog.Logger
	client SSOClient
}

func NewAuthController(log *slog.Logger, client SSOClient) *AuthController {
	return &AuthController{log: log, client: client}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.auth.Login"

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.log.Error(ErrParsingJSON.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		http.Error(w, ErrLogin.Error(), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		c.log.Error(ErrInvalidRequest.Error(), slog.String("operation", op))
		http.Error(w, ErrLogin.Error(), http.StatusBadRequest)
		return
	}

	cleanedEmail := strings.ToLower(strings.TrimSpace(req.Email))

	accessToken, err := c.client.Login(r.Context(), cleanedEmail, req.Password)
	if err != nil {
		c.log.Error("sso.Login failed", slog.String("error", err.Error()), slog.String("operation", op))
		http.Error(w, ErrLogin.Error(), http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(TokenResponse{AccessToken: accessToken}); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
	}
}
