package handler

import (
	"net/http"

	"taskdeck/internal/domain"
	"taskdeck/internal/middleware"
	"taskdeck/internal/service"
	"taskdeck/pkg/response"

	"github.com/gorilla/mux"
)

type KnowledgeHandler struct {
	service *service.KnowledgeService
}

func NewKnowledgeHandler(service *service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{
		service: service,
	}
}

// List accepts category, status, tag and search query parameters.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.KnowledgeFilterFromQuery(r.URL.Query())

	entries, err := h.service.List(middleware.GetUserID(r), filter)
	if err != nil {
		writeError(w, err, "Knowledge entries")
		return
	}

	response.Success(w, entries)
}

func (h *KnowledgeHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.Tags(middleware.GetUserID(r))
	if err != nil {
		writeError(w, err, "Tags")
		return
	}

	response.Success(w, tags)
}

func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateKnowledgeRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := h.service.Create(middleware.GetUserID(r), &req)
	if err != nil {
		writeError(w, err, "Knowledge entry")
		return
	}

	response.Created(w, entry)
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Get(middleware.GetUserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Knowledge entry")
		return
	}

	response.Success(w, entry)
}

func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateKnowledgeRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := h.service.Update(middleware.GetUserID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, err, "Knowledge entry")
		return
	}

	response.Success(w, entry)
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(middleware.GetUserID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err, "Knowledge entry")
		return
	}

	response.Message(w, "Knowledge entry deleted successfully")
}

func (h *KnowledgeHandler) LinkTasks(w http.ResponseWriter, r *http.Request) {
	var req domain.LinkTasksRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := h.service.LinkTasks(middleware.GetUserID(r), mux.Vars(r)["id"], req.TaskIDs)
	if err != nil {
		writeError(w, err, "Knowledge entry")
		return
	}

	response.Success(w, entry)
}
