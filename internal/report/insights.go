package report

import (
	"math"
	"time"
)

type Insights struct {
	Since            *time.Time     `json:"since,omitempty"`
	Total            int            `json:"total"`
	Completed        int            `json:"completed"`
	Pending          int            `json:"pending"`
	ByPriority       map[string]int `json:"by_priority"`
	ByCategory       map[string]int `json:"by_category"`
	CompletionRate   int            `json:"completion_rate"`
	TotalActualTime  int            `json:"total_actual_time"`
	AvgEstimatedTime int            `json:"avg_estimated_time"`
	AvgActualTime    int            `json:"avg_actual_time"`
	Underestimated   int            `json:"underestimated"`
	Overestimated    int            `json:"overestimated"`
	Accurate         int            `json:"accurate"`
}

// BuildInsights summarizes tasks. Counts and time totals cover every task;
// the completion rate covers only tasks created at or after since, or all
// tasks when since is the zero time.
func BuildInsights(tasks []Task, since time.Time) *Insights {
	in := &Insights{
		Total:      len(tasks),
		ByPriority: map[string]int{},
		ByCategory: map[string]int{},
	}
	if !since.IsZero() {
		s := since
		in.Since = &s
	}

	var (
		estimatedSum int
		actualSum    int
		withActual   int
		windowTotal  int
		windowDone   int
	)

	for _, t := range tasks {
		if t.Completed {
			in.Completed++
		} else {
			in.Pending++
		}
		if t.Priority != "" {
			in.ByPriority[t.Priority]++
		}
		if t.Category != "" {
			in.ByCategory[t.Category]++
		}

		estimatedSum += t.EstimatedTime
		actualSum += t.ActualTime
		if t.ActualTime > 0 {
			withActual++
		}

		if t.ActualTime > 0 && t.EstimatedTime > 0 {
			switch {
			case t.ActualTime > t.EstimatedTime:
				in.Underestimated++
			case t.ActualTime < t.EstimatedTime:
				in.Overestimated++
			default:
				in.Accurate++
			}
		}

		if since.IsZero() || !t.CreatedAt.Before(since) {
			windowTotal++
			if t.Completed {
				windowDone++
			}
		}
	}

	in.TotalActualTime = actualSum
	if len(tasks) > 0 {
		in.AvgEstimatedTime = roundDiv(estimatedSum, len(tasks))
	}
	if withActual > 0 {
		in.AvgActualTime = roundDiv(actualSum, withActual)
	}
	if windowTotal > 0 {
		in.CompletionRate = roundDiv(windowDone*100, windowTotal)
	}

	return in
}

func roundDiv(a, b int) int {
	return int(math.Round(float64(a) / float64(b)))
}
