package handler

import (
	"net/http"

	"taskdeck/internal/domain"
	"taskdeck/internal/middleware"
	"taskdeck/internal/service"
	"taskdeck/pkg/response"

	"github.com/gorilla/mux"
)

type AdminHandler struct {
	service *service.AdminService
}

func NewAdminHandler(service *service.AdminService) *AdminHandler {
	return &AdminHandler{
		service: service,
	}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers()
	if err != nil {
		writeError(w, err, "Users")
		return
	}

	response.Success(w, users)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.service.CreateUser(&req)
	if err != nil {
		writeError(w, err, "User")
		return
	}

	response.Created(w, user)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "User")
		return
	}

	response.Success(w, user)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminUpdateUserRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUser(mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err, "User")
		return
	}

	response.Success(w, user)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(middleware.GetUserID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err, "User")
		return
	}

	response.Message(w, "User deleted successfully")
}

func (h *AdminHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.UserStats(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "User")
		return
	}

	response.Success(w, stats)
}

func (h *AdminHandler) SystemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.SystemStats()
	if err != nil {
		writeError(w, err, "Stats")
		return
	}

	response.Success(w, stats)
}

func (h *AdminHandler) Promote(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Promote(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "User")
		return
	}

	response.Success(w, user)
}

func (h *AdminHandler) Demote(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Demote(middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "User")
		return
	}

	response.Success(w, user)
}

// Setup makes the caller the first admin. It is mounted outside the
// admin-only routes.
func (h *AdminHandler) Setup(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.SetupAdmin(middleware.GetUserID(r))
	if err != nil {
		writeError(w, err, "User")
		return
	}

	response.Success(w, user)
}
