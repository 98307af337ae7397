package service

import (
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/domain"
	"taskdeck/internal/repository"
	"taskdeck/internal/websocket"

	"github.com/google/uuid"
)

const defaultEstimatedTime = 30

type TaskService struct {
	repo     repository.TaskRepository
	notifier Notifier
	now      func() time.Time
}

func NewTaskService(repo repository.TaskRepository, notifier Notifier) *TaskService {
	return &TaskService{
		repo:     repo,
		notifier: orNop(notifier),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *TaskService) List(userID string) ([]*domain.Task, error) {
	tasks, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return tasks, nil
}

// Get returns the task if it belongs to userID.
func (s *TaskService) Get(userID, taskID string) (*domain.Task, error) {
	task, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, notFound(err)
	}
	if task.UserID != userID {
		return nil, ErrNotFound
	}
	return task, nil
}

func (s *TaskService) Create(userID string, req *domain.CreateTaskRequest) (*domain.Task, error) {
	now := s.now()

	task := &domain.Task{
		ID:              uuid.New().String(),
		UserID:          userID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Priority:        req.Priority,
		DueDate:         req.DueDate,
		Category:        req.Category,
		EstimatedTime:   req.EstimatedTime,
		ActualTime:      req.ActualTime,
		Tags:            req.Tags,
		Location:        req.Location,
		Reminder:        req.Reminder,
		PlannedForToday: req.PlannedForToday,
		Status:          req.Status,
		Recurring:       req.Recurring,
		Notes:           req.Notes,
		SprintID:        req.SprintID,
		StoryPoints:     req.StoryPoints,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	applyTaskDefaults(task)

	if req.Completed || task.Status == domain.TaskStatusCompleted {
		task.SetCompleted(true, now)
	}

	if err := s.repo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.notifier.Notify(userID, websocket.TypeTaskChanged, websocket.OpCreated, task.ID, task)
	return task, nil
}

func (s *TaskService) Update(userID, taskID string, req *domain.UpdateTaskRequest) (*domain.Task, error) {
	task, err := s.Get(userID, taskID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	applyTaskUpdate(task, req, now)
	task.UpdatedAt = now

	if err := s.repo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", notFound(err))
	}

	s.notifier.Notify(userID, websocket.TypeTaskChanged, websocket.OpUpdated, task.ID, task)
	return task, nil
}

func (s *TaskService) Delete(userID, taskID string) error {
	if _, err := s.Get(userID, taskID); err != nil {
		return err
	}

	if err := s.repo.Delete(taskID); err != nil {
		return notFound(err)
	}

	s.notifier.Notify(userID, websocket.TypeTaskChanged, websocket.OpDeleted, taskID, nil)
	return nil
}

func applyTaskDefaults(task *domain.Task) {
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	if task.Category == "" {
		task.Category = domain.CategoryWork
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusNew
	}
	if task.Recurring == "" {
		task.Recurring = domain.RecurNone
	}
	if task.EstimatedTime == 0 {
		task.EstimatedTime = defaultEstimatedTime
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
}

// applyTaskUpdate copies the set fields of req onto task. An explicit
// completed flag wins over a status change in the same request.
func applyTaskUpdate(task *domain.Task, req *domain.UpdateTaskRequest, now time.Time) {
	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.EstimatedTime != nil {
		task.EstimatedTime = *req.EstimatedTime
	}
	if req.ActualTime != nil {
		task.ActualTime = *req.ActualTime
	}
	if req.Tags != nil {
		task.Tags = req.Tags
	}
	if req.Location != nil {
		task.Location = *req.Location
	}
	if req.Reminder != nil {
		task.Reminder = req.Reminder
	}
	if req.PlannedForToday != nil {
		task.PlannedForToday = *req.PlannedForToday
	}
	if req.Recurring != nil {
		task.Recurring = *req.Recurring
	}
	if req.Notes != nil {
		task.Notes = *req.Notes
	}
	if req.SprintID != nil {
		task.SprintID = *req.SprintID
	}
	if req.StoryPoints != nil {
		task.StoryPoints = *req.StoryPoints
	}

	if req.Status != nil {
		task.Status = *req.Status
		task.SetCompleted(task.Status == domain.TaskStatusCompleted, now)
	}
	if req.Completed != nil {
		task.SetCompleted(*req.Completed, now)
	}
}
