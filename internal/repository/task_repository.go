package repository

import (
	"context"
	"fmt"
	"sort"

	"taskdeck/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type TaskRepository interface {
	Create(task *domain.Task) error
	FindByID(id string) (*domain.Task, error)
	ListByUser(userID string) ([]*domain.Task, error)
	ListBySprint(sprintID string) ([]*domain.Task, error)
	Update(task *domain.Task) error
	Delete(id string) error
	DeleteByUser(userID string) (int, error)
	Count() (int, error)
}

type taskDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Task
}

type CouchDBTaskRepository struct {
	db *kivik.DB
}

func NewTaskRepository(client *kivik.Client, dbName string) *CouchDBTaskRepository {
	return &CouchDBTaskRepository{
		db: client.DB(dbName),
	}
}

func (r *CouchDBTaskRepository) Create(task *domain.Task) error {
	doc := taskDoc{
		DocID:   docID(docTypeTask, task.ID),
		DocType: docTypeTask,
		Task:    *task,
	}

	if _, err := r.db.Put(context.Background(), doc.DocID, doc); err != nil {
		return putError(err, "create")
	}

	return nil
}

func (r *CouchDBTaskRepository) FindByID(id string) (*domain.Task, error) {
	var doc taskDoc
	if err := r.db.Get(context.Background(), docID(docTypeTask, id)).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &doc.Task, nil
}

func (r *CouchDBTaskRepository) list(selector map[string]interface{}) ([]*domain.Task, error) {
	selector["doc_type"] = docTypeTask

	docs, err := findDocs[taskDoc](r.db, selector, "tasks")
	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, &docs[i].Task)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	return tasks, nil
}

func (r *CouchDBTaskRepository) ListByUser(userID string) ([]*domain.Task, error) {
	return r.list(map[string]interface{}{"user_id": userID})
}

func (r *CouchDBTaskRepository) ListBySprint(sprintID string) ([]*domain.Task, error) {
	return r.list(map[string]interface{}{"sprint_id": sprintID})
}

func (r *CouchDBTaskRepository) Update(task *domain.Task) error {
	id := docID(docTypeTask, task.ID)
	rev, err := currentRev(r.db, id, ErrTaskNotFound)
	if err != nil {
		return err
	}

	doc := taskDoc{
		DocID:   id,
		Rev:     rev,
		DocType: docTypeTask,
		Task:    *task,
	}

	if _, err := r.db.Put(context.Background(), id, doc); err != nil {
		return putError(err, "update")
	}

	return nil
}

func (r *CouchDBTaskRepository) Delete(id string) error {
	key := docID(docTypeTask, id)
	rev, err := currentRev(r.db, key, ErrTaskNotFound)
	if err != nil {
		return err
	}

	if _, err := r.db.Delete(context.Background(), key, rev); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

func (r *CouchDBTaskRepository) DeleteByUser(userID string) (int, error) {
	return deleteDocs(r.db, map[string]interface{}{
		"doc_type": docTypeTask,
		"user_id":  userID,
	}, "tasks")
}

func (r *CouchDBTaskRepository) Count() (int, error) {
	return countDocs(r.db, map[string]interface{}{"doc_type": docTypeTask}, "tasks")
}
