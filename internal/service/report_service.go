package service

import (
	"time"

	"taskdeck/internal/domain"
	"taskdeck/internal/report"
	"taskdeck/internal/repository"
)

const DefaultInsightsDays = 30

type ReportService struct {
	taskRepo repository.TaskRepository
	now      func() time.Time
}

func NewReportService(taskRepo repository.TaskRepository) *ReportService {
	return &ReportService{
		taskRepo: taskRepo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Insights summarizes the user's tasks; the completion rate covers tasks
// created in the last days days.
func (s *ReportService) Insights(userID string, days int) (*report.Insights, error) {
	if days <= 0 {
		days = DefaultInsightsDays
	}

	tasks, err := s.taskRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	since := s.now().AddDate(0, 0, -days)
	return report.BuildInsights(domain.TaskMetrics(tasks), since), nil
}
