package domain

import (
	"testing"
	"time"
)

func TestTask_SetCompleted(t *testing.T) {
	now := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	task := &Task{Status: TaskStatusNew}
	task.SetCompleted(true, now)
	if !task.Completed || task.Status != TaskStatusCompleted {
		t.Fatalf("expected completed task, got %+v", task)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v, want %v", task.CompletedAt, now)
	}

	later := now.Add(time.Hour)
	task.SetCompleted(true, later)
	if !task.CompletedAt.Equal(now) {
		t.Error("completing twice must keep the first completion time")
	}

	task.SetCompleted(false, later)
	if task.Completed || task.CompletedAt != nil {
		t.Errorf("expected reopened task, got %+v", task)
	}
	if task.Status != TaskStatusInProgress {
		t.Errorf("Status = %s, want %s", task.Status, TaskStatusInProgress)
	}
}

func TestTask_Metrics(t *testing.T) {
	task := &Task{Priority: PriorityHigh, Category: CategoryWork, StoryPoints: 0}
	m := task.Metrics()
	if m.Points() != 1 {
		t.Errorf("Points() = %d, want default 1", m.Points())
	}
	if m.Priority != "high" || m.Category != "work" {
		t.Errorf("unexpected projection %+v", m)
	}
}
