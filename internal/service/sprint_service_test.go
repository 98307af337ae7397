package service

import (
	"errors"
	"testing"
	"time"

	"taskdeck/internal/domain"
)

func newSprintFixture() (*SprintService, *mockSprintRepository, *mockTaskRepository) {
	sprints := newMockSprintRepository()
	tasks := newMockTaskRepository()
	return NewSprintService(sprints, tasks, nil), sprints, tasks
}

func TestSprintService_CreateAndGet(t *testing.T) {
	service, _, tasks := newSprintFixture()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sprint, err := service.Create("user-1", &domain.CreateSprintRequest{
		Name:      " Sprint 1 ",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 13),
	})
	if err != nil {
		t.Fatalf("Create() unexpected error = %v", err)
	}
	if sprint.Status != domain.SprintPlanned || sprint.Name != "Sprint 1" {
		t.Errorf("Create() = %+v", sprint)
	}

	tasks.Create(&domain.Task{ID: "t1", UserID: "user-1", SprintID: sprint.ID})
	tasks.Create(&domain.Task{ID: "t2", UserID: "user-1"})

	got, err := service.Get("user-1", sprint.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error = %v", err)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].ID != "t1" {
		t.Errorf("Get() tasks = %v", got.Tasks)
	}

	if _, err := service.Get("user-2", sprint.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() by other user error = %v, want %v", err, ErrNotFound)
	}
}

func TestSprintService_UpdateRejectsInvertedDates(t *testing.T) {
	service, sprints, _ := newSprintFixture()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sprints.Create(&domain.Sprint{ID: "s1", UserID: "user-1", StartDate: start, EndDate: start.AddDate(0, 0, 7)})

	before := start.AddDate(0, 0, -1)
	_, err := service.Update("user-1", "s1", &domain.UpdateSprintRequest{EndDate: &before})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Update() error = %v, want %v", err, ErrInvalidInput)
	}
}

func TestSprintService_AssignAndRemoveTask(t *testing.T) {
	service, sprints, tasks := newSprintFixture()
	sprints.Create(&domain.Sprint{ID: "s1", UserID: "user-1"})
	sprints.Create(&domain.Sprint{ID: "s2", UserID: "user-1"})
	tasks.Create(&domain.Task{ID: "t1", UserID: "user-1"})
	tasks.Create(&domain.Task{ID: "foreign", UserID: "user-2"})

	task, err := service.AddTask("user-1", "s1", "t1", &domain.AssignTaskRequest{StoryPoints: intPtr(5)})
	if err != nil {
		t.Fatalf("AddTask() unexpected error = %v", err)
	}
	if task.SprintID != "s1" || task.StoryPoints != 5 {
		t.Errorf("AddTask() = sprint %q points %d", task.SprintID, task.StoryPoints)
	}

	if _, err := service.AddTask("user-1", "s1", "foreign", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddTask() foreign task error = %v, want %v", err, ErrNotFound)
	}

	if _, err := service.RemoveTask("user-1", "s2", "t1"); !errors.Is(err, ErrTaskNotInSprint) {
		t.Errorf("RemoveTask() wrong sprint error = %v, want %v", err, ErrTaskNotInSprint)
	}

	task, err = service.RemoveTask("user-1", "s1", "t1")
	if err != nil {
		t.Fatalf("RemoveTask() unexpected error = %v", err)
	}
	if task.SprintID != "" {
		t.Errorf("RemoveTask() left sprint %q", task.SprintID)
	}
}

func TestSprintService_DeleteDetachesTasks(t *testing.T) {
	service, sprints, tasks := newSprintFixture()
	sprints.Create(&domain.Sprint{ID: "s1", UserID: "user-1"})
	tasks.Create(&domain.Task{ID: "t1", UserID: "user-1", SprintID: "s1"})
	tasks.Create(&domain.Task{ID: "t2", UserID: "user-1", SprintID: "s1"})

	if err := service.Delete("user-1", "s1"); err != nil {
		t.Fatalf("Delete() unexpected error = %v", err)
	}
	if _, ok := sprints.sprints["s1"]; ok {
		t.Error("sprint still stored")
	}
	for id, task := range tasks.tasks {
		if task.SprintID != "" {
			t.Errorf("task %s still in sprint %q", id, task.SprintID)
		}
	}
}

func TestSprintService_Burndown(t *testing.T) {
	service, sprints, tasks := newSprintFixture()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sprints.Create(&domain.Sprint{ID: "s1", UserID: "user-1", StartDate: start, EndDate: start.AddDate(0, 0, 4)})

	done := start.AddDate(0, 0, 1)
	tasks.Create(&domain.Task{ID: "t1", UserID: "user-1", SprintID: "s1", StoryPoints: 3, Completed: true, CompletedAt: &done})
	tasks.Create(&domain.Task{ID: "t2", UserID: "user-1", SprintID: "s1", StoryPoints: 2})

	b, err := service.Burndown("user-1", "s1")
	if err != nil {
		t.Fatalf("Burndown() unexpected error = %v", err)
	}
	if len(b.Dates) != 5 {
		t.Errorf("Dates = %d, want 5", len(b.Dates))
	}
	if b.TotalPoints != 5 || b.CompletedPoints != 3 {
		t.Errorf("points total=%d completed=%d", b.TotalPoints, b.CompletedPoints)
	}
	if b.TasksCount != 2 || b.CompletedTasksCount != 1 {
		t.Errorf("tasks total=%d completed=%d", b.TasksCount, b.CompletedTasksCount)
	}
}
