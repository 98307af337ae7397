package domain

import "time"

type SprintStatus string

const (
	SprintPlanned   SprintStatus = "planned"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

type Sprint struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Goal      string       `json:"goal,omitempty"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Status    SprintStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type SprintWithTasks struct {
	*Sprint
	Tasks []*Task `json:"tasks"`
}

type CreateSprintRequest struct {
	Name      string       `json:"name" validate:"required,max=100"`
	Goal      string       `json:"goal" validate:"max=1000"`
	StartDate time.Time    `json:"start_date" validate:"required"`
	EndDate   time.Time    `json:"end_date" validate:"required,gtefield=StartDate"`
	Status    SprintStatus `json:"status" validate:"omitempty,oneof=planned active completed"`
}

type UpdateSprintRequest struct {
	Name      *string       `json:"name" validate:"omitempty,min=1,max=100"`
	Goal      *string       `json:"goal" validate:"omitempty,max=1000"`
	StartDate *time.Time    `json:"start_date"`
	EndDate   *time.Time    `json:"end_date"`
	Status    *SprintStatus `json:"status" validate:"omitempty,oneof=planned active completed"`
}

type AssignTaskRequest struct {
	StoryPoints *int `json:"story_points" validate:"omitempty,min=0"`
}
