package repository

import (
	"context"
	"fmt"
	"sort"

	"taskdeck/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type SprintRepository interface {
	Create(sprint *domain.Sprint) error
	FindByID(id string) (*domain.Sprint, error)
	ListByUser(userID string) ([]*domain.Sprint, error)
	Update(sprint *domain.Sprint) error
	Delete(id string) error
	DeleteByUser(userID string) (int, error)
}

type sprintDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.Sprint
}

type CouchDBSprintRepository struct {
	db *kivik.DB
}

func NewSprintRepository(client *kivik.Client, dbName string) *CouchDBSprintRepository {
	return &CouchDBSprintRepository{
		db: client.DB(dbName),
	}
}

func (r *CouchDBSprintRepository) Create(sprint *domain.Sprint) error {
	doc := sprintDoc{
		DocID:   docID(docTypeSprint, sprint.ID),
		DocType: docTypeSprint,
		Sprint:  *sprint,
	}

	if _, err := r.db.Put(context.Background(), doc.DocID, doc); err != nil {
		return putError(err, "create")
	}

	return nil
}

func (r *CouchDBSprintRepository) FindByID(id string) (*domain.Sprint, error) {
	var doc sprintDoc
	if err := r.db.Get(context.Background(), docID(docTypeSprint, id)).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrSprintNotFound
		}
		return nil, fmt.Errorf("failed to get sprint: %w", err)
	}

	return &doc.Sprint, nil
}

// ListByUser returns the user's sprints, latest start date first.
func (r *CouchDBSprintRepository) ListByUser(userID string) ([]*domain.Sprint, error) {
	docs, err := findDocs[sprintDoc](r.db, map[string]interface{}{
		"doc_type": docTypeSprint,
		"user_id":  userID,
	}, "sprints")
	if err != nil {
		return nil, err
	}

	sprints := make([]*domain.Sprint, 0, len(docs))
	for i := range docs {
		sprints = append(sprints, &docs[i].Sprint)
	}
	sort.SliceStable(sprints, func(i, j int) bool {
		return sprints[i].StartDate.After(sprints[j].StartDate)
	})

	return sprints, nil
}

func (r *CouchDBSprintRepository) Update(sprint *domain.Sprint) error {
	id := docID(docTypeSprint, sprint.ID)
	rev, err := currentRev(r.db, id, ErrSprintNotFound)
	if err != nil {
		return err
	}

	doc := sprintDoc{
		DocID:   id,
		Rev:     rev,
		DocType: docTypeSprint,
		Sprint:  *sprint,
	}

	if _, err := r.db.Put(context.Background(), id, doc); err != nil {
		return putError(err, "update")
	}

	return nil
}

func (r *CouchDBSprintRepository) Delete(id string) error {
	key := docID(docTypeSprint, id)
	rev, err := currentRev(r.db, key, ErrSprintNotFound)
	if err != nil {
		return err
	}

	if _, err := r.db.Delete(context.Background(), key, rev); err != nil {
		return fmt.Errorf("failed to delete sprint: %w", err)
	}

	return nil
}

func (r *CouchDBSprintRepository) DeleteByUser(userID string) (int, error) {
	return deleteDocs(r.db, map[string]interface{}{
		"doc_type": docTypeSprint,
		"user_id":  userID,
	}, "sprints")
}
