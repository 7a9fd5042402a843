package models

import (
	"encoding/json"
	"time"
)

// TaskStatus represents the state of a collection task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CollectionMethod is how a task's URLs are executed.
type CollectionMethod string

const (
	MethodSingle CollectionMethod = "single"
	MethodBatch  CollectionMethod = "batch"
	MethodShop   CollectionMethod = "shop"
)

// TaskSettings is the recognized settings surface for a collection task.
// Zero values fall back to per-platform defaults at execution time.
// DownloadImages/MaxImages are passthrough for downstream consumers; the
// engine does not fetch image bytes.
type TaskSettings struct {
	MaxItems            int      `json:"max_items" validate:"gte=0,lte=500"`
	Timeout             int      `json:"timeout" validate:"gte=0"` // seconds, per fetch
	RetryCount          int      `json:"retry_count" validate:"gte=0,lte=10"`
	Delay               int      `json:"delay" validate:"gte=0"` // milliseconds between chunks
	EnableContentFilter *bool    `json:"enable_content_filter,omitempty"`
	FilterKeywords      []string `json:"filter_keywords,omitempty"`
	MinContentLength    int      `json:"min_content_length" validate:"gte=0"`
	MaxContentLength    int      `json:"max_content_length" validate:"gte=0"`
	DownloadImages      bool     `json:"download_images"`
	MaxImages           int      `json:"max_images" validate:"gte=0"`
	Concurrency         int      `json:"concurrency" validate:"gte=0,lte=20"`
}

// ContentFilterEnabled resolves the tri-state enable flag (default on).
func (s *TaskSettings) ContentFilterEnabled() bool {
	if s.EnableContentFilter == nil {
		return true
	}
	return *s.EnableContentFilter
}

// CollectionTask groups classified URLs that share a platform and intent.
// Mutated only by the orchestrator/engine.
//
// Invariant: CollectedItems + FailedItems <= TotalItems at all times, with
// equality exactly when Status is completed.
type CollectionTask struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Platform       Platform         `json:"platform"`
	Method         CollectionMethod `json:"method"`
	Status         TaskStatus       `json:"status"`
	URLs           []string         `json:"urls"`
	TotalItems     int              `json:"total_items"`
	CollectedItems int              `json:"collected_items"`
	FailedItems    int              `json:"failed_items"`
	Progress       float64          `json:"progress"` // 0..100
	Settings       TaskSettings     `json:"settings"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	StartedAt      time.Time        `json:"started_at,omitempty"`
	EndedAt        time.Time        `json:"ended_at,omitempty"`
}

// ToJSON serializes the task for storage or logging.
func (t *CollectionTask) ToJSON() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
