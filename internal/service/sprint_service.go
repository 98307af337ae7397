package service

import (
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/domain"
	"taskdeck/internal/report"
	"taskdeck/internal/repository"
	"taskdeck/internal/websocket"

	"github.com/google/uuid"
)

type SprintService struct {
	repo     repository.SprintRepository
	taskRepo repository.TaskRepository
	notifier Notifier
	now      func() time.Time
}

func NewSprintService(repo repository.SprintRepository, taskRepo repository.TaskRepository, notifier Notifier) *SprintService {
	return &SprintService{
		repo:     repo,
		taskRepo: taskRepo,
		notifier: orNop(notifier),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *SprintService) List(userID string) ([]*domain.Sprint, error) {
	sprints, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if sprints == nil {
		sprints = []*domain.Sprint{}
	}
	return sprints, nil
}

func (s *SprintService) get(userID, sprintID string) (*domain.Sprint, error) {
	sprint, err := s.repo.FindByID(sprintID)
	if err != nil {
		return nil, notFound(err)
	}
	if sprint.UserID != userID {
		return nil, ErrNotFound
	}
	return sprint, nil
}

func (s *SprintService) tasks(sprintID string) ([]*domain.Task, error) {
	tasks, err := s.taskRepo.ListBySprint(sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprint tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return tasks, nil
}

// Get returns the sprint together with the tasks assigned to it.
func (s *SprintService) Get(userID, sprintID string) (*domain.SprintWithTasks, error) {
	sprint, err := s.get(userID, sprintID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks(sprint.ID)
	if err != nil {
		return nil, err
	}

	return &domain.SprintWithTasks{Sprint: sprint, Tasks: tasks}, nil
}

func (s *SprintService) Create(userID string, req *domain.CreateSprintRequest) (*domain.Sprint, error) {
	now := s.now()

	sprint := &domain.Sprint{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Goal:      req.Goal,
		StartDate: req.StartDate.UTC(),
		EndDate:   req.EndDate.UTC(),
		Status:    req.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sprint.Status == "" {
		sprint.Status = domain.SprintPlanned
	}

	if err := s.repo.Create(sprint); err != nil {
		return nil, fmt.Errorf("failed to create sprint: %w", err)
	}

	s.notifier.Notify(userID, websocket.TypeSprintChanged, websocket.OpCreated, sprint.ID, sprint)
	return sprint, nil
}

func (s *SprintService) Update(userID, sprintID string, req *domain.UpdateSprintRequest) (*domain.Sprint, error) {
	sprint, err := s.get(userID, sprintID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		sprint.Name = strings.TrimSpace(*req.Name)
	}
	if req.Goal != nil {
		sprint.Goal = *req.Goal
	}
	if req.StartDate != nil {
		sprint.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		sprint.EndDate = req.EndDate.UTC()
	}
	if req.Status != nil {
		sprint.Status = *req.Status
	}
	if sprint.EndDate.Before(sprint.StartDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}
	sprint.UpdatedAt = s.now()

	if err := s.repo.Update(sprint); err != nil {
		return nil, fmt.Errorf("failed to update sprint: %w", notFound(err))
	}

	s.notifier.Notify(userID, websocket.TypeSprintChanged, websocket.OpUpdated, sprint.ID, sprint)
	return sprint, nil
}

// Delete removes the sprint and detaches its tasks.
func (s *SprintService) Delete(userID, sprintID string) error {
	sprint, err := s.get(userID, sprintID)
	if err != nil {
		return err
	}

	tasks, err := s.tasks(sprint.ID)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		task.SprintID = ""
		task.UpdatedAt = s.now()
		if err := s.taskRepo.Update(task); err != nil {
			return fmt.Errorf("failed to detach task %s: %w", task.ID, err)
		}
	}

	if err := s.repo.Delete(sprint.ID); err != nil {
		return notFound(err)
	}

	s.notifier.Notify(userID, websocket.TypeSprintChanged, websocket.OpDeleted, sprint.ID, nil)
	return nil
}

// AddTask assigns one of the user's tasks to the sprint, optionally
// setting its story points.
func (s *SprintService) AddTask(userID, sprintID, taskID string, req *domain.AssignTaskRequest) (*domain.Task, error) {
	sprint, err := s.get(userID, sprintID)
	if err != nil {
		return nil, err
	}

	task, err := s.ownedTask(userID, taskID)
	if err != nil {
		return nil, err
	}

	task.SprintID = sprint.ID
	if req != nil && req.StoryPoints != nil {
		task.StoryPoints = *req.StoryPoints
	}
	return s.saveTask(userID, task)
}

func (s *SprintService) RemoveTask(userID, sprintID, taskID string) (*domain.Task, error) {
	if _, err := s.get(userID, sprintID); err != nil {
		return nil, err
	}

	task, err := s.ownedTask(userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.SprintID != sprintID {
		return nil, ErrTaskNotInSprint
	}

	task.SprintID = ""
	return s.saveTask(userID, task)
}

// Burndown computes the sprint's burndown chart from its tasks.
func (s *SprintService) Burndown(userID, sprintID string) (*report.Burndown, error) {
	sprint, err := s.get(userID, sprintID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks(sprint.ID)
	if err != nil {
		return nil, err
	}

	return report.BuildBurndown(sprint.StartDate, sprint.EndDate, domain.TaskMetrics(tasks)), nil
}

func (s *SprintService) ownedTask(userID, taskID string) (*domain.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, notFound(err)
	}
	if task.UserID != userID {
		return nil, ErrNotFound
	}
	return task, nil
}

func (s *SprintService) saveTask(userID string, task *domain.Task) (*domain.Task, error) {
	task.UpdatedAt = s.now()
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", notFound(err))
	}

	s.notifier.Notify(userID, websocket.TypeTaskChanged, websocket.OpUpdated, task.ID, task)
	return task, nil
}
