// Package report computes derived sprint and productivity metrics.
// Every function here is pure: the caller supplies the task set and the
// clock, so the same code runs on the server and against the client's
// offline cache.
package report

import (
	"math"
	"sort"
	"time"
)

const day = 24 * time.Hour

// Task is the subset of a task that the calculators read.
type Task struct {
	Priority      string
	Category      string
	Completed     bool
	CompletedAt   *time.Time
	CreatedAt     time.Time
	StoryPoints   int
	EstimatedTime int
	ActualTime    int
}

// Points returns the burndown weight of the task. Unset means 1.
func (t Task) Points() int {
	if t.StoryPoints <= 0 {
		return 1
	}
	return t.StoryPoints
}

type Burndown struct {
	Dates               []string  `json:"dates"`
	Ideal               []float64 `json:"ideal"`
	Actual              []float64 `json:"actual"`
	TotalPoints         int       `json:"total_points"`
	CompletedPoints     int       `json:"completed_points"`
	TasksCount          int       `json:"tasks_count"`
	CompletedTasksCount int       `json:"completed_tasks_count"`
}

// BuildBurndown computes the ideal and actual remaining-points series for
// the inclusive day range [start, end]. Days are calendar days in UTC;
// index 0 is the start day.
func BuildBurndown(start, end time.Time, tasks []Task) *Burndown {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		start, end = end, start
	}
	days := int(end.Sub(start)/day) + 1

	b := &Burndown{
		Dates:      make([]string, days),
		Ideal:      make([]float64, days),
		Actual:     make([]float64, days),
		TasksCount: len(tasks),
	}

	completed := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		b.TotalPoints += t.Points()
		if t.Completed && t.CompletedAt != nil {
			completed = append(completed, t)
			b.CompletedTasksCount++
			b.CompletedPoints += t.Points()
		}
	}
	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].CompletedAt.Before(*completed[j].CompletedAt)
	})

	total := float64(b.TotalPoints)
	for i := 0; i < days; i++ {
		b.Dates[i] = start.Add(time.Duration(i) * day).Format("2006-01-02")
		if days == 1 {
			b.Ideal[i] = 0
			continue
		}
		b.Ideal[i] = round1(total - total/float64(days-1)*float64(i))
	}

	drops := make([]float64, days)
	for _, t := range completed {
		idx := int(math.Floor(t.CompletedAt.UTC().Sub(start).Hours() / 24))
		if idx < 0 || idx >= days {
			continue
		}
		drops[idx] += float64(t.Points())
	}

	remaining := total
	for i := 0; i < days; i++ {
		remaining -= drops[i]
		b.Actual[i] = remaining
	}

	return b
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
