package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email     string    `json:"email" validate:"required,email"`
	Password  string    `json:"password,omitempty"` // stored hashed, cleared before responses
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Sanitized returns a copy safe to send to clients.
func (u *User) Sanitized() *User {
	c := *u
	c.Password = ""
	return &c
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type UpdateProfileRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
}

// Admin requests.

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role" validate:"omitempty,oneof=user admin"`
}

type AdminUpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=30,alphanum"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     *Role   `json:"role" validate:"omitempty,oneof=user admin"`
}

type UserStats struct {
	UserID         string     `json:"user_id"`
	TaskCount      int        `json:"task_count"`
	CompletedTasks int        `json:"completed_tasks"`
	KnowledgeCount int        `json:"knowledge_count"`
	SprintCount    int        `json:"sprint_count"`
	LastTaskUpdate *time.Time `json:"last_task_update,omitempty"`
}
