package service

import (
	"errors"

	"taskdeck/internal/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrAdminExists        = errors.New("admin already exists")
	ErrSelfAction         = errors.New("cannot perform this action on your own account")
	ErrTaskNotInSprint    = errors.New("task is not in this sprint")
	ErrInvalidInput       = errors.New("invalid input")
)

// notFound maps repository lookups that found nothing to ErrNotFound.
func notFound(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrTaskNotFound),
		errors.Is(err, repository.ErrKnowledgeNotFound),
		errors.Is(err, repository.ErrSprintNotFound):
		return ErrNotFound
	}
	return err
}
