package api

import (
	"huddle/auth"
	"huddle/repositories"
	"huddle/services"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	log     *slog.Logger
	service services.IAuthService
}

func NewAuthHandler(log *slog.Logger, service services.IAuthService) *AuthHandler {
	return &AuthHandler{log: log, service: service}
}

// RegisterRoutes mounts the public account routes and the ones behind requireToken.
func (h *AuthHandler) RegisterRoutes(r chi.Router, requireToken func(http.Handler) http.Handler) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/anonymous", h.handleAnonymous)

	r.Group(func(r chi.Router) {
		r.Use(requireToken)
		r.Post("/logout", h.handleLogout)
		r.Get("/verify", h.handleVerify)
		r.Post("/refresh", h.handleRefresh)
	})
}

// userResponse is the public view of an account, the password hash never leaves the server.
type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Avatar    string    `json:"avatar"`
	IsOnline  bool      `json:"isOnline"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u repositories.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		IsOnline:  u.IsOnline,
		CreatedAt: u.CreatedAt,
	}
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, envelope{
		"message": "User registered successfully",
		"token":   session.Token,
		"user":    toUserResponse(session.User),
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusOK, envelope{
		"message": "Login successful",
		"token":   session.Token,
		"user":    toUserResponse(session.User),
	})
}

func (h *AuthHandler) handleAnonymous(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.AnonymousLogin(r.Context())
	if err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusOK, envelope{
		"message": "Anonymous login successful",
		"token":   session.Token,
		"user":    toUserResponse(session.User),
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), auth.UserIDFromContext(r.Context())); err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusOK, envelope{"message": "Logged out successfully"})
}

func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Verify(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusOK, envelope{"user": toUserResponse(user)})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := h.service.Refresh(auth.UserIDFromContext(r.Context()))
	if err != nil {
		respondFailure(h.log, w, r, err)
		return
	}
	respondOK(w, http.StatusOK, envelope{"token": token})
}
