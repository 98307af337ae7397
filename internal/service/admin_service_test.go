package service

import (
	"errors"
	"testing"
	"time"

	"taskdeck/internal/domain"
)

type adminFixture struct {
	service   *AdminService
	users     *mockUserRepository
	tasks     *mockTaskRepository
	knowledge *mockKnowledgeRepository
	sprints   *mockSprintRepository
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		users:     newMockUserRepository(),
		tasks:     newMockTaskRepository(),
		knowledge: newMockKnowledgeRepository(),
		sprints:   newMockSprintRepository(),
	}
	f.service = NewAdminService(f.users, f.tasks, f.knowledge, f.sprints)
	f.users.Create(&domain.User{ID: "admin-1", Username: "root", Email: "root@example.com", Role: domain.RoleAdmin, Password: "hashed"})
	f.users.Create(&domain.User{ID: "user-1", Username: "alice", Email: "alice@example.com", Role: domain.RoleUser, Password: "hashed"})
	return f
}

func TestAdminService_DeleteUser(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		target  string
		wantErr error
	}{
		{name: "cascade delete", actor: "admin-1", target: "user-1"},
		{name: "self delete", actor: "admin-1", target: "admin-1", wantErr: ErrSelfAction},
		{name: "unknown user", actor: "admin-1", target: "ghost", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdminFixture()
			f.tasks.Create(&domain.Task{ID: "t1", UserID: "user-1"})
			f.tasks.Create(&domain.Task{ID: "t2", UserID: "admin-1"})
			f.knowledge.Create(&domain.KnowledgeEntry{ID: "k1", UserID: "user-1"})
			f.sprints.Create(&domain.Sprint{ID: "s1", UserID: "user-1"})

			err := f.service.DeleteUser(tt.actor, tt.target)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("DeleteUser() error = %v, want %v", err, tt.wantErr)
				}
				if len(f.users.users) != 2 {
					t.Error("DeleteUser() removed a user on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("DeleteUser() unexpected error = %v", err)
			}

			if _, ok := f.users.users["user-1"]; ok {
				t.Error("user still stored")
			}
			if len(f.tasks.tasks) != 1 || f.tasks.tasks["t2"] == nil {
				t.Errorf("tasks left = %v", f.tasks.tasks)
			}
			if len(f.knowledge.entries) != 0 || len(f.sprints.sprints) != 0 {
				t.Error("owned knowledge or sprints not deleted")
			}
		})
	}
}

func TestAdminService_Roles(t *testing.T) {
	f := newAdminFixture()

	user, err := f.service.Promote("user-1")
	if err != nil {
		t.Fatalf("Promote() unexpected error = %v", err)
	}
	if user.Role != domain.RoleAdmin || user.Password != "" {
		t.Errorf("Promote() = %+v", user)
	}

	if _, err := f.service.Demote("admin-1", "admin-1"); !errors.Is(err, ErrSelfAction) {
		t.Errorf("Demote() self error = %v, want %v", err, ErrSelfAction)
	}

	user, err = f.service.Demote("admin-1", "user-1")
	if err != nil {
		t.Fatalf("Demote() unexpected error = %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("Demote() role = %q", user.Role)
	}
}

func TestAdminService_SetupAdmin(t *testing.T) {
	users := newMockUserRepository()
	service := NewAdminService(users, newMockTaskRepository(), newMockKnowledgeRepository(), newMockSprintRepository())
	users.Create(&domain.User{ID: "first", Username: "first", Role: domain.RoleUser})
	users.Create(&domain.User{ID: "second", Username: "second", Role: domain.RoleUser})

	user, err := service.SetupAdmin("first")
	if err != nil {
		t.Fatalf("SetupAdmin() unexpected error = %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Errorf("SetupAdmin() role = %q", user.Role)
	}

	if _, err := service.SetupAdmin("second"); !errors.Is(err, ErrAdminExists) {
		t.Errorf("SetupAdmin() second call error = %v, want %v", err, ErrAdminExists)
	}
}

func TestAdminService_UpdateUser(t *testing.T) {
	tests := []struct {
		name    string
		req     *domain.AdminUpdateUserRequest
		wantErr error
	}{
		{name: "rename", req: &domain.AdminUpdateUserRequest{Username: strPtr("alicia")}},
		{name: "username taken", req: &domain.AdminUpdateUserRequest{Username: strPtr("root")}, wantErr: ErrUsernameTaken},
		{name: "email taken", req: &domain.AdminUpdateUserRequest{Email: strPtr("root@example.com")}, wantErr: ErrEmailTaken},
		{name: "same email", req: &domain.AdminUpdateUserRequest{Email: strPtr("alice@example.com")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdminFixture()
			user, err := f.service.UpdateUser("user-1", tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("UpdateUser() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateUser() unexpected error = %v", err)
			}
			if tt.req.Username != nil && user.Username != *tt.req.Username {
				t.Errorf("Username = %q", user.Username)
			}
		})
	}
}

func TestAdminService_Stats(t *testing.T) {
	f := newAdminFixture()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	f.tasks.Create(&domain.Task{ID: "t1", UserID: "user-1", Completed: true, UpdatedAt: older})
	f.tasks.Create(&domain.Task{ID: "t2", UserID: "user-1", UpdatedAt: newer})
	f.knowledge.Create(&domain.KnowledgeEntry{ID: "k1", UserID: "user-1"})
	f.sprints.Create(&domain.Sprint{ID: "s1", UserID: "user-1"})

	stats, err := f.service.UserStats("user-1")
	if err != nil {
		t.Fatalf("UserStats() unexpected error = %v", err)
	}
	if stats.TaskCount != 2 || stats.CompletedTasks != 1 || stats.KnowledgeCount != 1 || stats.SprintCount != 1 {
		t.Errorf("UserStats() = %+v", stats)
	}
	if stats.LastTaskUpdate == nil || !stats.LastTaskUpdate.Equal(newer) {
		t.Errorf("LastTaskUpdate = %v, want %v", stats.LastTaskUpdate, newer)
	}

	system, err := f.service.SystemStats()
	if err != nil {
		t.Fatalf("SystemStats() unexpected error = %v", err)
	}
	if system.Users != 2 || system.Admins != 1 || system.Tasks != 2 || system.Knowledge != 1 {
		t.Errorf("SystemStats() = %+v", system)
	}
}

func TestReportService_Insights(t *testing.T) {
	tasks := newMockTaskRepository()
	service := NewReportService(tasks)
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	tasks.Create(&domain.Task{ID: "recent", UserID: "user-1", Priority: domain.PriorityHigh, Completed: true, CreatedAt: now.AddDate(0, 0, -2)})
	tasks.Create(&domain.Task{ID: "old", UserID: "user-1", Priority: domain.PriorityLow, CreatedAt: now.AddDate(0, 0, -90)})
	tasks.Create(&domain.Task{ID: "other", UserID: "user-2", CreatedAt: now})

	in, err := service.Insights("user-1", 0)
	if err != nil {
		t.Fatalf("Insights() unexpected error = %v", err)
	}
	if in.Total != 2 || in.Completed != 1 {
		t.Errorf("Insights() total=%d completed=%d", in.Total, in.Completed)
	}
	if in.Since == nil || !in.Since.Equal(now.AddDate(0, 0, -DefaultInsightsDays)) {
		t.Errorf("Since = %v", in.Since)
	}
	if in.CompletionRate != 100 {
		t.Errorf("CompletionRate = %d, want 100", in.CompletionRate)
	}
}
