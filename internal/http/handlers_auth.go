package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"finapi/internal/auth"
	"finapi/internal/core"
)

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      core.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in core.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		respondDomainError(w, r, err)
		return
	}
	in.FirstName = core.Sanitize(in.FirstName)
	in.LastName = core.Sanitize(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if err := core.ValidateRegister(in); err != nil {
		respondDomainError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	user := core.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         "user",
	}
	if err := s.store.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, core.ErrConflict) {
			respondError(w, http.StatusBadRequest, "email already registered", nil)
			return
		}
		respondDomainError(w, r, err)
		return
	}

	token, expires, err := s.issuer.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, tokenResponse{Token: token, ExpiresAt: expires, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondDomainError(w, r, err)
		return
	}

	user, err := s.store.UserByEmail(r.Context(), strings.TrimSpace(in.Email))
	if err != nil || !auth.CheckPassword(user.PasswordHash, in.Password) {
		// One answer for unknown email and wrong password.
		respondError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		slog.WarnContext(r.Context(), "Failed to record last login",
			"user_id", user.ID, "error", err)
	}

	token, expires, err := s.issuer.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	user, err := s.store.UserByID(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var in struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondDomainError(w, r, err)
		return
	}

	user, err := s.store.UserByID(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, in.CurrentPassword) {
		respondError(w, http.StatusUnauthorized, "current password is incorrect", nil)
		return
	}

	// Same password policy as registration.
	check := core.RegisterInput{
		FirstName: user.FirstName, LastName: user.LastName, Email: user.Email,
		Password: in.NewPassword, ConfirmPassword: in.ConfirmPassword,
	}
	if err := core.ValidateRegister(check); err != nil {
		respondDomainError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	user.PasswordHash = hash
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		respondDomainError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "Password changed", "user_id", user.ID)
	respondJSON(w, http.StatusNoContent, nil)
}
