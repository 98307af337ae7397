package repository

import (
	"context"
	"fmt"
	"sort"

	"taskdeck/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type UserRepository interface {
	Create(user *domain.User) error
	FindByEmail(email string) (*domain.User, error)
	FindByID(id string) (*domain.User, error)
	FindByUsername(username string) (*domain.User, error)
	List() ([]*domain.User, error)
	Update(user *domain.User) error
	Delete(id string) error
	EmailExists(email string) (bool, error)
	UsernameExists(username string) (bool, error)
	CountByRole(role domain.Role) (int, error)
	Count() (int, error)
}

type userDoc struct {
	DocID   string `json:"_id"`
	Rev     string `json:"_rev,omitempty"`
	DocType string `json:"doc_type"`
	domain.User
}

type userRepository struct {
	db *kivik.DB
}

func NewUserRepository(client *kivik.Client, dbName string) UserRepository {
	return &userRepository{
		db: client.DB(dbName),
	}
}

func (r *userRepository) Create(user *domain.User) error {
	doc := userDoc{
		DocID:   docID(docTypeUser, user.ID),
		DocType: docTypeUser,
		User:    *user,
	}

	if _, err := r.db.Put(context.Background(), doc.DocID, doc); err != nil {
		return putError(err, "create")
	}

	return nil
}

func (r *userRepository) findOne(field, value string) (*domain.User, error) {
	docs, err := findDocs[userDoc](r.db, map[string]interface{}{
		"doc_type": docTypeUser,
		field:      value,
	}, "users")
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}

	user := docs[0].User
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*domain.User, error) {
	return r.findOne("email", email)
}

func (r *userRepository) FindByUsername(username string) (*domain.User, error) {
	return r.findOne("username", username)
}

func (r *userRepository) FindByID(id string) (*domain.User, error) {
	var doc userDoc
	if err := r.db.Get(context.Background(), docID(docTypeUser, id)).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return &doc.User, nil
}

func (r *userRepository) List() ([]*domain.User, error) {
	docs, err := findDocs[userDoc](r.db, map[string]interface{}{
		"doc_type": docTypeUser,
	}, "users")
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, &docs[i].User)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})

	return users, nil
}

func (r *userRepository) Update(user *domain.User) error {
	id := docID(docTypeUser, user.ID)
	rev, err := currentRev(r.db, id, ErrUserNotFound)
	if err != nil {
		return err
	}

	doc := userDoc{
		DocID:   id,
		Rev:     rev,
		DocType: docTypeUser,
		User:    *user,
	}

	if _, err := r.db.Put(context.Background(), id, doc); err != nil {
		return putError(err, "update")
	}

	return nil
}

func (r *userRepository) Delete(id string) error {
	key := docID(docTypeUser, id)
	rev, err := currentRev(r.db, key, ErrUserNotFound)
	if err != nil {
		return err
	}

	if _, err := r.db.Delete(context.Background(), key, rev); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

func (r *userRepository) EmailExists(email string) (bool, error) {
	return r.exists(r.FindByEmail(email))
}

func (r *userRepository) UsernameExists(username string) (bool, error) {
	return r.exists(r.FindByUsername(username))
}

func (r *userRepository) exists(_ *domain.User, err error) (bool, error) {
	if err == ErrUserNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *userRepository) CountByRole(role domain.Role) (int, error) {
	return countDocs(r.db, map[string]interface{}{
		"doc_type": docTypeUser,
		"role":     string(role),
	}, "users")
}

func (r *userRepository) Count() (int, error) {
	return countDocs(r.db, map[string]interface{}{
		"doc_type": docTypeUser,
	}, "users")
}
