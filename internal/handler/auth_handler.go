package handler

import (
	"net/http"

	"taskdeck/internal/domain"
	"taskdeck/internal/service"
	"taskdeck/pkg/response"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	authResp, err := h.authService.Register(&req)
	if err != nil {
		writeError(w, err, "Registration")
		return
	}

	response.Created(w, authResp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	loginResp, err := h.authService.Login(&req)
	if err != nil {
		writeError(w, err, "Login")
		return
	}

	response.Success(w, loginResp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if !decode(w, r, &req) {
		return
	}

	tokenResp, err := h.authService.RefreshToken(&req)
	if err != nil {
		writeError(w, err, "Token refresh")
		return
	}

	response.Success(w, tokenResp)
}

// Logout is stateless; clients drop their tokens.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	response.Message(w, "Logged out successfully")
}
