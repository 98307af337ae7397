package service

import (
	"sort"

	"taskdeck/internal/domain"
	"taskdeck/internal/repository"
	"taskdeck/internal/websocket"
)

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(user *domain.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByUsername(username string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) List() ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *mockUserRepository) Update(user *domain.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) Delete(id string) error {
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepository) EmailExists(email string) (bool, error) {
	_, err := m.FindByEmail(email)
	return err == nil, nil
}

func (m *mockUserRepository) UsernameExists(username string) (bool, error) {
	_, err := m.FindByUsername(username)
	return err == nil, nil
}

func (m *mockUserRepository) CountByRole(role domain.Role) (int, error) {
	n := 0
	for _, user := range m.users {
		if user.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *mockUserRepository) Count() (int, error) {
	return len(m.users), nil
}

type mockTaskRepository struct {
	tasks map[string]*domain.Task
}

func newMockTaskRepository() *mockTaskRepository {
	return &mockTaskRepository{
		tasks: make(map[string]*domain.Task),
	}
}

func (m *mockTaskRepository) Create(task *domain.Task) error {
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepository) FindByID(id string) (*domain.Task, error) {
	if task, ok := m.tasks[id]; ok {
		return task, nil
	}
	return nil, repository.ErrTaskNotFound
}

func (m *mockTaskRepository) list(keep func(*domain.Task) bool) []*domain.Task {
	var tasks []*domain.Task
	for _, task := range m.tasks {
		if keep(task) {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

func (m *mockTaskRepository) ListByUser(userID string) ([]*domain.Task, error) {
	return m.list(func(t *domain.Task) bool { return t.UserID == userID }), nil
}

func (m *mockTaskRepository) ListBySprint(sprintID string) ([]*domain.Task, error) {
	return m.list(func(t *domain.Task) bool { return t.SprintID == sprintID }), nil
}

func (m *mockTaskRepository) Update(task *domain.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return repository.ErrTaskNotFound
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepository) Delete(id string) error {
	if _, ok := m.tasks[id]; !ok {
		return repository.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *mockTaskRepository) DeleteByUser(userID string) (int, error) {
	n := 0
	for id, task := range m.tasks {
		if task.UserID == userID {
			delete(m.tasks, id)
			n++
		}
	}
	return n, nil
}

func (m *mockTaskRepository) Count() (int, error) {
	return len(m.tasks), nil
}

type mockKnowledgeRepository struct {
	entries map[string]*domain.KnowledgeEntry
}

func newMockKnowledgeRepository() *mockKnowledgeRepository {
	return &mockKnowledgeRepository{
		entries: make(map[string]*domain.KnowledgeEntry),
	}
}

func (m *mockKnowledgeRepository) Create(entry *domain.KnowledgeEntry) error {
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockKnowledgeRepository) FindByID(id string) (*domain.KnowledgeEntry, error) {
	if entry, ok := m.entries[id]; ok {
		return entry, nil
	}
	return nil, repository.ErrKnowledgeNotFound
}

func (m *mockKnowledgeRepository) List(userID string, filter domain.KnowledgeFilter) ([]*domain.KnowledgeEntry, error) {
	var entries []*domain.KnowledgeEntry
	for _, entry := range m.entries {
		if entry.UserID == userID && filter.Matches(entry.Fields()) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (m *mockKnowledgeRepository) Tags(userID string) ([]string, error) {
	seen := map[string]bool{}
	tags := []string{}
	for _, entry := range m.entries {
		if entry.UserID != userID {
			continue
		}
		for _, tag := range entry.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

func (m *mockKnowledgeRepository) Update(entry *domain.KnowledgeEntry) error {
	if _, ok := m.entries[entry.ID]; !ok {
		return repository.ErrKnowledgeNotFound
	}
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockKnowledgeRepository) Delete(id string) error {
	if _, ok := m.entries[id]; !ok {
		return repository.ErrKnowledgeNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *mockKnowledgeRepository) DeleteByUser(userID string) (int, error) {
	n := 0
	for id, entry := range m.entries {
		if entry.UserID == userID {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

func (m *mockKnowledgeRepository) CountByUser(userID string) (int, error) {
	n := 0
	for _, entry := range m.entries {
		if entry.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockKnowledgeRepository) Count() (int, error) {
	return len(m.entries), nil
}

type mockSprintRepository struct {
	sprints map[string]*domain.Sprint
}

func newMockSprintRepository() *mockSprintRepository {
	return &mockSprintRepository{
		sprints: make(map[string]*domain.Sprint),
	}
}

func (m *mockSprintRepository) Create(sprint *domain.Sprint) error {
	m.sprints[sprint.ID] = sprint
	return nil
}

func (m *mockSprintRepository) FindByID(id string) (*domain.Sprint, error) {
	if sprint, ok := m.sprints[id]; ok {
		return sprint, nil
	}
	return nil, repository.ErrSprintNotFound
}

func (m *mockSprintRepository) ListByUser(userID string) ([]*domain.Sprint, error) {
	var sprints []*domain.Sprint
	for _, sprint := range m.sprints {
		if sprint.UserID == userID {
			sprints = append(sprints, sprint)
		}
	}
	return sprints, nil
}

func (m *mockSprintRepository) Update(sprint *domain.Sprint) error {
	if _, ok := m.sprints[sprint.ID]; !ok {
		return repository.ErrSprintNotFound
	}
	m.sprints[sprint.ID] = sprint
	return nil
}

func (m *mockSprintRepository) Delete(id string) error {
	if _, ok := m.sprints[id]; !ok {
		return repository.ErrSprintNotFound
	}
	delete(m.sprints, id)
	return nil
}

func (m *mockSprintRepository) DeleteByUser(userID string) (int, error) {
	n := 0
	for id, sprint := range m.sprints {
		if sprint.UserID == userID {
			delete(m.sprints, id)
			n++
		}
	}
	return n, nil
}

type notification struct {
	userID string
	kind   websocket.MessageType
	op     string
	id     string
}

type recordingNotifier struct {
	sent []notification
}

func (r *recordingNotifier) Notify(userID string, kind websocket.MessageType, op, id string, _ interface{}) {
	r.sent = append(r.sent, notification{userID: userID, kind: kind, op: op, id: id})
}
