package handler

import (
	"net/http"
	"strconv"

	"taskdeck/internal/middleware"
	"taskdeck/internal/service"
	"taskdeck/pkg/response"
)

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{
		service: service,
	}
}

// Insights reads the window from ?days=N, defaulting to 30.
func (h *ReportHandler) Insights(w http.ResponseWriter, r *http.Request) {
	days := service.DefaultInsightsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(w, "days must be a positive integer")
			return
		}
		days = n
	}

	insights, err := h.service.Insights(middleware.GetUserID(r), days)
	if err != nil {
		writeError(w, err, "Insights")
		return
	}

	response.Success(w, insights)
}
