package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kivik/kivik/v4"
)

const (
	docTypeUser      = "user"
	docTypeTask      = "task"
	docTypeKnowledge = "knowledge"
	docTypeSprint    = "sprint"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrKnowledgeNotFound = errors.New("knowledge entry not found")
	ErrSprintNotFound    = errors.New("sprint not found")
	ErrDocumentExists    = errors.New("document already exists")
	ErrDocumentConflict  = errors.New("document update conflict")
)

func docID(docType, id string) string {
	return fmt.Sprintf("%s:%s", docType, id)
}

// findDocs runs a Mango query and scans every row into a D.
func findDocs[D any](db *kivik.DB, selector map[string]interface{}, what string) ([]D, error) {
	query := map[string]interface{}{
		"selector": selector,
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	var docs []D
	for rows.Next() {
		var doc D
		if err := rows.ScanDoc(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", what, err)
	}

	return docs, nil
}

type revDoc struct {
	ID  string `json:"_id"`
	Rev string `json:"_rev"`
}

// countDocs returns how many documents match selector.
func countDocs(db *kivik.DB, selector map[string]interface{}, what string) (int, error) {
	docs, err := findDocs[revDoc](db, selector, what)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// deleteDocs removes every document matching selector and reports how
// many were removed.
func deleteDocs(db *kivik.DB, selector map[string]interface{}, what string) (int, error) {
	docs, err := findDocs[revDoc](db, selector, what)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, doc := range docs {
		if _, err := db.Delete(context.Background(), doc.ID, doc.Rev); err != nil {
			if kivik.HTTPStatus(err) == 404 {
				continue
			}
			return deleted, fmt.Errorf("failed to delete %s %s: %w", what, doc.ID, err)
		}
		deleted++
	}

	return deleted, nil
}

// currentRev fetches the revision of an existing document, mapping a
// missing document to notFound.
func currentRev(db *kivik.DB, id string, notFound error) (string, error) {
	var doc revDoc
	if err := db.Get(context.Background(), id).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return "", notFound
		}
		return "", fmt.Errorf("failed to fetch %s: %w", id, err)
	}
	return doc.Rev, nil
}

func putError(err error, action string) error {
	switch kivik.HTTPStatus(err) {
	case 409:
		if action == "create" {
			return ErrDocumentExists
		}
		return ErrDocumentConflict
	}
	return fmt.Errorf("failed to %s document: %w", action, err)
}
