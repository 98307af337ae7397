package handler

import (
	"net/http"

	"taskdeck/internal/domain"
	"taskdeck/internal/middleware"
	"taskdeck/internal/service"
	"taskdeck/pkg/response"

	"github.com/gorilla/mux"
)

type TaskHandler struct {
	service *service.TaskService
}

func NewTaskHandler(service *service.TaskService) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.List(middleware.GetUserID(r))
	if err != nil {
		writeError(w, err, "Tasks")
		return
	}

	response.Success(w, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.service.Create(middleware.GetUserID(r), &req)
	if err != nil {
		writeError(w, err, "Task")
		return
	}

	response.Created(w, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Task")
		return
	}

	response.Success(w, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.service.Update(middleware.GetUserID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err, "Task")
		return
	}

	response.Success(w, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(middleware.GetUserID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err, "Task")
		return
	}

	response.Message(w, "Task deleted successfully")
}
