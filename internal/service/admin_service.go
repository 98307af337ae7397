package service

import (
	"fmt"
	"log"
	"time"

	"taskdeck/internal/domain"
	"taskdeck/internal/repository"
)

type SystemStats struct {
	Users     int `json:"users"`
	Admins    int `json:"admins"`
	Tasks     int `json:"tasks"`
	Knowledge int `json:"knowledge"`
}

type AdminService struct {
	userRepo      repository.UserRepository
	taskRepo      repository.TaskRepository
	knowledgeRepo repository.KnowledgeRepository
	sprintRepo    repository.SprintRepository
}

func NewAdminService(
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
	knowledgeRepo repository.KnowledgeRepository,
	sprintRepo repository.SprintRepository,
) *AdminService {
	return &AdminService{
		userRepo:      userRepo,
		taskRepo:      taskRepo,
		knowledgeRepo: knowledgeRepo,
		sprintRepo:    sprintRepo,
	}
}

func (s *AdminService) ListUsers() ([]*domain.User, error) {
	users, err := s.userRepo.List()
	if err != nil {
		return nil, err
	}

	sanitized := make([]*domain.User, 0, len(users))
	for _, u := range users {
		sanitized = append(sanitized, u.Sanitized())
	}
	return sanitized, nil
}

func (s *AdminService) GetUser(userID string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, notFound(err)
	}
	return user.Sanitized(), nil
}

func (s *AdminService) CreateUser(req *domain.CreateUserRequest) (*domain.User, error) {
	user, err := createUser(s.userRepo, req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *AdminService) UpdateUser(userID string, req *domain.AdminUpdateUserRequest) (*domain.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, notFound(err)
	}

	if req.Username != nil && *req.Username != user.Username {
		taken, err := s.userRepo.UsernameExists(*req.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, ErrUsernameTaken
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		taken, err := s.userRepo.EmailExists(*req.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}

	return s.save(user)
}

// DeleteUser removes the account and everything it owns. Admins cannot
// delete themselves.
func (s *AdminService) DeleteUser(actorID, userID string) error {
	if actorID == userID {
		return ErrSelfAction
	}

	if _, err := s.userRepo.FindByID(userID); err != nil {
		return notFound(err)
	}

	tasks, err := s.taskRepo.DeleteByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	entries, err := s.knowledgeRepo.DeleteByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge entries: %w", err)
	}
	sprints, err := s.sprintRepo.DeleteByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to delete sprints: %w", err)
	}

	if err := s.userRepo.Delete(userID); err != nil {
		return notFound(err)
	}

	log.Printf("[Admin] deleted user %s (%d tasks, %d knowledge entries, %d sprints)", userID, tasks, entries, sprints)
	return nil
}

func (s *AdminService) UserStats(userID string) (*domain.UserStats, error) {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		return nil, notFound(err)
	}

	tasks, err := s.taskRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	entries, err := s.knowledgeRepo.CountByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count knowledge entries: %w", err)
	}
	sprints, err := s.sprintRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}

	stats := &domain.UserStats{
		UserID:         userID,
		TaskCount:      len(tasks),
		KnowledgeCount: entries,
		SprintCount:    len(sprints),
	}
	for _, t := range tasks {
		if t.Completed {
			stats.CompletedTasks++
		}
		if stats.LastTaskUpdate == nil || t.UpdatedAt.After(*stats.LastTaskUpdate) {
			updated := t.UpdatedAt
			stats.LastTaskUpdate = &updated
		}
	}
	return stats, nil
}

func (s *AdminService) SystemStats() (*SystemStats, error) {
	var (
		stats SystemStats
		err   error
	)
	if stats.Users, err = s.userRepo.Count(); err != nil {
		return nil, err
	}
	if stats.Admins, err = s.userRepo.CountByRole(domain.RoleAdmin); err != nil {
		return nil, err
	}
	if stats.Tasks, err = s.taskRepo.Count(); err != nil {
		return nil, err
	}
	if stats.Knowledge, err = s.knowledgeRepo.Count(); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *AdminService) Promote(userID string) (*domain.User, error) {
	return s.setRole(userID, domain.RoleAdmin)
}

// Demote drops the admin role. An admin cannot demote themselves.
func (s *AdminService) Demote(actorID, userID string) (*domain.User, error) {
	if actorID == userID {
		return nil, ErrSelfAction
	}
	return s.setRole(userID, domain.RoleUser)
}

// SetupAdmin promotes userID when the system has no admin yet.
func (s *AdminService) SetupAdmin(userID string) (*domain.User, error) {
	admins, err := s.userRepo.CountByRole(domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to count admins: %w", err)
	}
	if admins > 0 {
		return nil, ErrAdminExists
	}

	user, err := s.setRole(userID, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	log.Printf("[Admin] %s set up as first admin", user.Username)
	return user, nil
}

func (s *AdminService) setRole(userID string, role domain.Role) (*domain.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, notFound(err)
	}
	if user.Role == role {
		return user.Sanitized(), nil
	}

	user.Role = role
	return s.save(user)
}

func (s *AdminService) save(user *domain.User) (*domain.User, error) {
	user.UpdatedAt = time.Now().UTC()
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", notFound(err))
	}
	return user.Sanitized(), nil
}
