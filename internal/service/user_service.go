package service

import (
	"fmt"
	"time"

	"taskdeck/internal/domain"
	"taskdeck/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

func (s *UserService) GetByID(id string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err)
	}

	return user.Sanitized(), nil
}

func (s *UserService) UpdateUsername(userID, newUsername string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, notFound(err)
	}

	if user.Username != newUsername {
		usernameExists, err := s.userRepo.UsernameExists(newUsername)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if usernameExists {
			return nil, ErrUsernameTaken
		}
	}

	user.Username = newUsername
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user.Sanitized(), nil
}

// IsAdmin reports whether the user holds the admin role.
func (s *UserService) IsAdmin(userID string) (bool, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return false, notFound(err)
	}
	return user.IsAdmin(), nil
}
