package models

import "time"

// ItemProgressStatus is the per-item lifecycle state reported by the engine.
type ItemProgressStatus string

const (
	ItemProgressPending    ItemProgressStatus = "pending"
	ItemProgressProcessing ItemProgressStatus = "processing"
	ItemProgressCompleted  ItemProgressStatus = "completed"
	ItemProgressFailed     ItemProgressStatus = "failed"
)

// ProgressEvent is emitted by the engine at each pipeline checkpoint for an
// item and consumed by the progress monitor.
type ProgressEvent struct {
	TaskID    string             `json:"task_id"`
	ItemURL   string             `json:"item_url"`
	Status    ItemProgressStatus `json:"status"`
	Progress  int                `json:"progress"` // 0..100
	Message   string             `json:"message,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// TaskStats is the aggregate derived from ProgressEvents for one task.
// Owned exclusively by the monitor; never the source of truth for task
// existence.
type TaskStats struct {
	TaskID           string     `json:"task_id"`
	TotalItems       int        `json:"total_items"`
	Completed        int        `json:"completed"`
	Failed           int        `json:"failed"`
	Processing       int        `json:"processing"`
	Pending          int        `json:"pending"`
	OverallProgress  int        `json:"overall_progress"` // 0..100
	StartTime        time.Time  `json:"start_time"`
	EstimatedEndTime *time.Time `json:"estimated_end_time,omitempty"`
	AverageSpeed     float64    `json:"average_speed"` // items per minute since start
	CurrentSpeed     float64    `json:"current_speed"` // items per minute, trailing window
	Errors           []string   `json:"errors,omitempty"`
}
