package domain

import (
	"time"

	"taskdeck/internal/report"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

type TaskCategory string

const (
	CategoryWork     TaskCategory = "work"
	CategoryPersonal TaskCategory = "personal"
	CategoryHealth   TaskCategory = "health"
	CategoryFinance  TaskCategory = "finance"
	CategoryOther    TaskCategory = "other"
)

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "new"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

type Recurrence string

const (
	RecurNone    Recurrence = "none"
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

type Task struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Priority        TaskPriority `json:"priority"`
	DueDate         *time.Time   `json:"due_date,omitempty"`
	Category        TaskCategory `json:"category"`
	EstimatedTime   int          `json:"estimated_time"`
	ActualTime      int          `json:"actual_time"`
	Tags            []string     `json:"tags"`
	Location        string       `json:"location,omitempty"`
	Reminder        *time.Time   `json:"reminder,omitempty"`
	PlannedForToday bool         `json:"planned_for_today"`
	Status          TaskStatus   `json:"status"`
	Recurring       Recurrence   `json:"recurring"`
	Notes           string       `json:"notes,omitempty"`
	Completed       bool         `json:"completed"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	SprintID        string       `json:"sprint_id,omitempty"`
	StoryPoints     int          `json:"story_points"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Metrics projects the task onto the fields the report calculators use.
func (t *Task) Metrics() report.Task {
	return report.Task{
		Priority:      string(t.Priority),
		Category:      string(t.Category),
		Completed:     t.Completed,
		CompletedAt:   t.CompletedAt,
		CreatedAt:     t.CreatedAt,
		StoryPoints:   t.StoryPoints,
		EstimatedTime: t.EstimatedTime,
		ActualTime:    t.ActualTime,
	}
}

func TaskMetrics(tasks []*Task) []report.Task {
	out := make([]report.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Metrics()
	}
	return out
}

// SetCompleted keeps Completed, Status and CompletedAt consistent.
func (t *Task) SetCompleted(done bool, now time.Time) {
	if done == t.Completed && (!done || t.CompletedAt != nil) {
		return
	}
	t.Completed = done
	if done {
		t.Status = TaskStatusCompleted
		t.CompletedAt = &now
		return
	}
	t.CompletedAt = nil
	if t.Status == TaskStatusCompleted {
		t.Status = TaskStatusInProgress
	}
}

type CreateTaskRequest struct {
	Title           string       `json:"title" validate:"required,max=200"`
	Description     string       `json:"description" validate:"max=5000"`
	Priority        TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate         *time.Time   `json:"due_date"`
	Category        TaskCategory `json:"category" validate:"omitempty,oneof=work personal health finance other"`
	EstimatedTime   int          `json:"estimated_time" validate:"min=0"`
	ActualTime      int          `json:"actual_time" validate:"min=0"`
	Tags            []string     `json:"tags" validate:"dive,max=50"`
	Location        string       `json:"location"`
	Reminder        *time.Time   `json:"reminder"`
	PlannedForToday bool         `json:"planned_for_today"`
	Status          TaskStatus   `json:"status" validate:"omitempty,oneof=new in-progress completed"`
	Recurring       Recurrence   `json:"recurring" validate:"omitempty,oneof=none daily weekly monthly"`
	Notes           string       `json:"notes"`
	Completed       bool         `json:"completed"`
	SprintID        string       `json:"sprint_id"`
	StoryPoints     int          `json:"story_points" validate:"min=0"`
}

// UpdateTaskRequest is a partial update; nil fields are left unchanged.
// Unknown fields such as id or created_at are ignored, so a client may
// send back a full entity.
type UpdateTaskRequest struct {
	Title           *string       `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string       `json:"description" validate:"omitempty,max=5000"`
	Priority        *TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate         *time.Time    `json:"due_date"`
	Category        *TaskCategory `json:"category" validate:"omitempty,oneof=work personal health finance other"`
	EstimatedTime   *int          `json:"estimated_time" validate:"omitempty,min=0"`
	ActualTime      *int          `json:"actual_time" validate:"omitempty,min=0"`
	Tags            []string      `json:"tags" validate:"omitempty,dive,max=50"`
	Location        *string       `json:"location"`
	Reminder        *time.Time    `json:"reminder"`
	PlannedForToday *bool         `json:"planned_for_today"`
	Status          *TaskStatus   `json:"status" validate:"omitempty,oneof=new in-progress completed"`
	Recurring       *Recurrence   `json:"recurring" validate:"omitempty,oneof=none daily weekly monthly"`
	Notes           *string       `json:"notes"`
	Completed       *bool         `json:"completed"`
	SprintID        *string       `json:"sprint_id"`
	StoryPoints     *int          `json:"story_points" validate:"omitempty,min=0"`
}
