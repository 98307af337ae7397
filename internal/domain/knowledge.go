package domain

import "time"

type KnowledgeCategory string

const (
	KnowledgeIncident  KnowledgeCategory = "incident"
	KnowledgeSolution  KnowledgeCategory = "solution"
	KnowledgeProcess   KnowledgeCategory = "process"
	KnowledgeReference KnowledgeCategory = "reference"
	KnowledgeOther     KnowledgeCategory = "other"
)

type KnowledgeStatus string

const (
	KnowledgeDraft     KnowledgeStatus = "draft"
	KnowledgePublished KnowledgeStatus = "published"
	KnowledgeArchived  KnowledgeStatus = "archived"
)

type KnowledgeEntry struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	Title          string            `json:"title"`
	Content        string            `json:"content"`
	Category       KnowledgeCategory `json:"category"`
	Tags           []string          `json:"tags"`
	RelatedEntries []string          `json:"related_entries"`
	RelatedTasks   []string          `json:"related_tasks"`
	Status         KnowledgeStatus   `json:"status"`
	CreatedBy      string            `json:"created_by"`
	Version        int               `json:"version"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (e *KnowledgeEntry) Fields() KnowledgeFields {
	return KnowledgeFields{
		Title:    e.Title,
		Content:  e.Content,
		Category: string(e.Category),
		Status:   string(e.Status),
		Tags:     e.Tags,
	}
}

type CreateKnowledgeRequest struct {
	Title          string            `json:"title" validate:"required,max=200"`
	Content        string            `json:"content" validate:"required"`
	Category       KnowledgeCategory `json:"category" validate:"omitempty,oneof=incident solution process reference other"`
	Tags           []string          `json:"tags" validate:"dive,max=50"`
	RelatedEntries []string          `json:"related_entries"`
	RelatedTasks   []string          `json:"related_tasks"`
	Status         KnowledgeStatus   `json:"status" validate:"omitempty,oneof=draft published archived"`
}

type UpdateKnowledgeRequest struct {
	Title          *string            `json:"title" validate:"omitempty,min=1,max=200"`
	Content        *string            `json:"content"`
	Category       *KnowledgeCategory `json:"category" validate:"omitempty,oneof=incident solution process reference other"`
	Tags           []string           `json:"tags" validate:"omitempty,dive,max=50"`
	RelatedEntries []string           `json:"related_entries"`
	RelatedTasks   []string           `json:"related_tasks"`
	Status         *KnowledgeStatus   `json:"status" validate:"omitempty,oneof=draft published archived"`
}

type LinkTasksRequest struct {
	TaskIDs []string `json:"task_ids" validate:"required,min=1,dive,required"`
}
