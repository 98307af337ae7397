package handler

import (
	"net/http"

	"taskdeck/internal/domain"
	"taskdeck/internal/middleware"
	"taskdeck/internal/service"
	"taskdeck/pkg/response"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	user, err := h.userService.GetByID(userID)
	if err != nil {
		writeError(w, err, "User")
		return
	}

	response.Success(w, user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req domain.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateUsername(userID, req.Username)
	if err != nil {
		writeError(w, err, "User")
		return
	}

	response.Success(w, user)
}
