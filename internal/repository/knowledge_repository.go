package repository

import (
	"context"
	"fmt"
	"sort"

	"taskdeck/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type KnowledgeRepository interface {
	Create(entry *domain.KnowledgeEntry) error
	FindByID(id string) (*domain.KnowledgeEntry, error)
	List(userID string, filter domain.KnowledgeFilter) ([]*domain.KnowledgeEntry, error)
	Tags(userID string) ([]string, error)
	Update(entry *domain.KnowledgeEntry) error
	Delete(id string) error
	DeleteByUser(userID string) (int, error)
	CountByUser(userID string) (int, error)
	Count() (int, error)
}

type knowledgeDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.KnowledgeEntry
}

type CouchDBKnowledgeRepository struct {
	db *kivik.DB
}

func NewKnowledgeRepository(client *kivik.Client, dbName string) *CouchDBKnowledgeRepository {
	return &CouchDBKnowledgeRepository{
		db: client.DB(dbName),
	}
}

func (r *CouchDBKnowledgeRepository) Create(entry *domain.KnowledgeEntry) error {
	doc := knowledgeDoc{
		DocID:          docID(docTypeKnowledge, entry.ID),
		DocType:        docTypeKnowledge,
		KnowledgeEntry: *entry,
	}

	if _, err := r.db.Put(context.Background(), doc.DocID, doc); err != nil {
		return putError(err, "create")
	}

	return nil
}

func (r *CouchDBKnowledgeRepository) FindByID(id string) (*domain.KnowledgeEntry, error) {
	var doc knowledgeDoc
	if err := r.db.Get(context.Background(), docID(docTypeKnowledge, id)).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrKnowledgeNotFound
		}
		return nil, fmt.Errorf("failed to get knowledge entry: %w", err)
	}

	return &doc.KnowledgeEntry, nil
}

// List returns the user's entries matching filter, most recently updated
// first.
func (r *CouchDBKnowledgeRepository) List(userID string, filter domain.KnowledgeFilter) ([]*domain.KnowledgeEntry, error) {
	selector := filter.Selector()
	selector["doc_type"] = docTypeKnowledge
	selector["user_id"] = userID

	docs, err := findDocs[knowledgeDoc](r.db, selector, "knowledge entries")
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.KnowledgeEntry, 0, len(docs))
	for i := range docs {
		entries = append(entries, &docs[i].KnowledgeEntry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})

	return entries, nil
}

func (r *CouchDBKnowledgeRepository) Tags(userID string) ([]string, error) {
	docs, err := findDocs[knowledgeDoc](r.db, map[string]interface{}{
		"doc_type": docTypeKnowledge,
		"user_id":  userID,
	}, "knowledge tags")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	tags := []string{}
	for _, doc := range docs {
		for _, tag := range doc.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)

	return tags, nil
}

func (r *CouchDBKnowledgeRepository) Update(entry *domain.KnowledgeEntry) error {
	id := docID(docTypeKnowledge, entry.ID)
	rev, err := currentRev(r.db, id, ErrKnowledgeNotFound)
	if err != nil {
		return err
	}

	doc := knowledgeDoc{
		DocID:          id,
		Rev:            rev,
		DocType:        docTypeKnowledge,
		KnowledgeEntry: *entry,
	}

	if _, err := r.db.Put(context.Background(), id, doc); err != nil {
		return putError(err, "update")
	}

	return nil
}

func (r *CouchDBKnowledgeRepository) Delete(id string) error {
	key := docID(docTypeKnowledge, id)
	rev, err := currentRev(r.db, key, ErrKnowledgeNotFound)
	if err != nil {
		return err
	}

	if _, err := r.db.Delete(context.Background(), key, rev); err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}

	return nil
}

func (r *CouchDBKnowledgeRepository) DeleteByUser(userID string) (int, error) {
	return deleteDocs(r.db, map[string]interface{}{
		"doc_type": docTypeKnowledge,
		"user_id":  userID,
	}, "knowledge entries")
}

func (r *CouchDBKnowledgeRepository) CountByUser(userID string) (int, error) {
	return countDocs(r.db, map[string]interface{}{
		"doc_type": docTypeKnowledge,
		"user_id":  userID,
	}, "knowledge entries")
}

func (r *CouchDBKnowledgeRepository) Count() (int, error) {
	return countDocs(r.db, map[string]interface{}{"doc_type": docTypeKnowledge}, "knowledge entries")
}
