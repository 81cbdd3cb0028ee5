package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"wincvex/internal/auth"
	"wincvex/internal/httpx"
	"wincvex/internal/model"
	"wincvex/internal/store"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=1024"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Username and password are required")
		return req, false
	}
	return req, true
}

func rateKey(action, username string) string {
	return action + ":" + strings.ToLower(username)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}
	if !s.limiter.Allow(rateKey("signup", req.Username)) {
		httpx.WriteError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("hash password", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	_, err = s.store.CreateUser(r.Context(), model.User{Username: req.Username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			httpx.WriteError(w, http.StatusBadRequest, "Username already taken")
			return
		}
		s.log.Error("create user", zap.String("username", req.Username), zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.log.Info("user created", zap.String("username", req.Username))
	httpx.WriteJSON(w, http.StatusCreated, messageResponse{Message: "User created"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}
	if !s.limiter.Allow(rateKey("login", req.Username)) {
		httpx.WriteError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	u, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Error("lookup user", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var stored string
	if u != nil {
		stored = u.PasswordHash
	}
	// An empty hash still costs one derivation, so unknown users take as long
	// as wrong passwords.
	valid := auth.VerifyPassword(req.Password, stored)
	if u == nil || !valid {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	if auth.NeedsRehash(u.PasswordHash) {
		s.rehash(r.Context(), u, req.Password)
	}

	token, err := s.tokens.Issue(u.Username)
	if err != nil {
		s.log.Error("issue token", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// rehash upgrades a stored hash to the current scheme. Failure leaves the old
// hash in place.
func (s *Server) rehash(ctx context.Context, u *model.User, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.store.UpdatePasswordHash(ctx, u.ID, hash)
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.String("username", u.Username), zap.Error(err))
		return
	}
	s.log.Info("password hash upgraded", zap.String("username", u.Username))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, userFromContext(r.Context()))
}
