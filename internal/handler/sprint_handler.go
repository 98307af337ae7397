package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"taskdeck/internal/domain"
	"taskdeck/internal/middleware"
	"taskdeck/internal/service"
	"taskdeck/pkg/response"

	"github.com/gorilla/mux"
)

type SprintHandler struct {
	service *service.SprintService
}

func NewSprintHandler(service *service.SprintService) *SprintHandler {
	return &SprintHandler{
		service: service,
	}
}

func (h *SprintHandler) List(w http.ResponseWriter, r *http.Request) {
	sprints, err := h.service.List(middleware.GetUserID(r))
	if err != nil {
		writeError(w, err, "Sprints")
		return
	}

	response.Success(w, sprints)
}

func (h *SprintHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSprintRequest
	if !decode(w, r, &req) {
		return
	}

	sprint, err := h.service.Create(middleware.GetUserID(r), &req)
	if err != nil {
		writeError(w, err, "Sprint")
		return
	}

	response.Created(w, sprint)
}

func (h *SprintHandler) Get(w http.ResponseWriter, r *http.Request) {
	sprint, err := h.service.Get(middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Sprint")
		return
	}

	response.Success(w, sprint)
}

func (h *SprintHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSprintRequest
	if !decode(w, r, &req) {
		return
	}

	sprint, err := h.service.Update(middleware.GetUserID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err, "Sprint")
		return
	}

	response.Success(w, sprint)
}

func (h *SprintHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(middleware.GetUserID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err, "Sprint")
		return
	}

	response.Message(w, "Sprint deleted successfully")
}

// AddTask takes an optional body with story_points.
func (h *SprintHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req domain.AssignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	vars := mux.Vars(r)
	task, err := h.service.AddTask(middleware.GetUserID(r), vars["id"], vars["taskId"], &req)
	if err != nil {
		writeError(w, err, "Sprint or task")
		return
	}

	response.Success(w, task)
}

func (h *SprintHandler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	task, err := h.service.RemoveTask(middleware.GetUserID(r), vars["id"], vars["taskId"])
	if err != nil {
		writeError(w, err, "Sprint or task")
		return
	}

	response.Success(w, task)
}

func (h *SprintHandler) Burndown(w http.ResponseWriter, r *http.Request) {
	burndown, err := h.service.Burndown(middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Sprint")
		return
	}

	response.Success(w, burndown)
}
