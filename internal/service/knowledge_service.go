package service

import (
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/domain"
	"taskdeck/internal/repository"
	"taskdeck/internal/websocket"

	"github.com/google/uuid"
)

type KnowledgeService struct {
	repo     repository.KnowledgeRepository
	notifier Notifier
	now      func() time.Time
}

func NewKnowledgeService(repo repository.KnowledgeRepository, notifier Notifier) *KnowledgeService {
	return &KnowledgeService{
		repo:     repo,
		notifier: orNop(notifier),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns the user's entries matching filter. With no status in
// the filter archived entries are left out.
func (s *KnowledgeService) List(userID string, filter domain.KnowledgeFilter) ([]*domain.KnowledgeEntry, error) {
	entries, err := s.repo.List(userID, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*domain.KnowledgeEntry{}
	}
	return entries, nil
}

func (s *KnowledgeService) Tags(userID string) ([]string, error) {
	return s.repo.Tags(userID)
}

func (s *KnowledgeService) Get(userID, entryID string) (*domain.KnowledgeEntry, error) {
	entry, err := s.repo.FindByID(entryID)
	if err != nil {
		return nil, notFound(err)
	}
	if entry.UserID != userID {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *KnowledgeService) Create(userID string, req *domain.CreateKnowledgeRequest) (*domain.KnowledgeEntry, error) {
	now := s.now()

	entry := &domain.KnowledgeEntry{
		ID:             uuid.New().String(),
		UserID:         userID,
		Title:          strings.TrimSpace(req.Title),
		Content:        req.Content,
		Category:       req.Category,
		Tags:           nonNil(req.Tags),
		RelatedEntries: nonNil(req.RelatedEntries),
		RelatedTasks:   nonNil(req.RelatedTasks),
		Status:         req.Status,
		CreatedBy:      userID,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if entry.Category == "" {
		entry.Category = domain.KnowledgeOther
	}
	if entry.Status == "" {
		entry.Status = domain.KnowledgePublished
	}

	if err := s.repo.Create(entry); err != nil {
		return nil, fmt.Errorf("failed to create knowledge entry: %w", err)
	}

	s.notifier.Notify(userID, websocket.TypeKnowledgeChanged, websocket.OpCreated, entry.ID, entry)
	return entry, nil
}

// Update applies the set fields of req. The version is bumped only when
// the content actually changes.
func (s *KnowledgeService) Update(userID, entryID string, req *domain.UpdateKnowledgeRequest) (*domain.KnowledgeEntry, error) {
	entry, err := s.Get(userID, entryID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		entry.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil && *req.Content != entry.Content {
		entry.Content = *req.Content
		entry.Version++
	}
	if req.Category != nil {
		entry.Category = *req.Category
	}
	if req.Tags != nil {
		entry.Tags = req.Tags
	}
	if req.RelatedEntries != nil {
		entry.RelatedEntries = req.RelatedEntries
	}
	if req.RelatedTasks != nil {
		entry.RelatedTasks = req.RelatedTasks
	}
	if req.Status != nil {
		entry.Status = *req.Status
	}
	entry.UpdatedAt = s.now()

	return s.save(userID, entry)
}

// LinkTasks adds taskIDs to the entry's related tasks, skipping ones
// already linked.
func (s *KnowledgeService) LinkTasks(userID, entryID string, taskIDs []string) (*domain.KnowledgeEntry, error) {
	entry, err := s.Get(userID, entryID)
	if err != nil {
		return nil, err
	}

	linked := make(map[string]bool, len(entry.RelatedTasks))
	for _, id := range entry.RelatedTasks {
		linked[id] = true
	}
	for _, id := range taskIDs {
		if id == "" || linked[id] {
			continue
		}
		linked[id] = true
		entry.RelatedTasks = append(entry.RelatedTasks, id)
	}
	entry.UpdatedAt = s.now()

	return s.save(userID, entry)
}

func (s *KnowledgeService) Delete(userID, entryID string) error {
	if _, err := s.Get(userID, entryID); err != nil {
		return err
	}

	if err := s.repo.Delete(entryID); err != nil {
		return notFound(err)
	}

	s.notifier.Notify(userID, websocket.TypeKnowledgeChanged, websocket.OpDeleted, entryID, nil)
	return nil
}

func (s *KnowledgeService) save(userID string, entry *domain.KnowledgeEntry) (*domain.KnowledgeEntry, error) {
	if err := s.repo.Update(entry); err != nil {
		return nil, fmt.Errorf("failed to update knowledge entry: %w", notFound(err))
	}

	s.notifier.Notify(userID, websocket.TypeKnowledgeChanged, websocket.OpUpdated, entry.ID, entry)
	return entry, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
