package interfaces

import (
	"time"

	"github.com/ternarybob/harvester/internal/models"
)

// TaskStorage persists collection tasks keyed by task ID.
// An injected repository instead of a process-global map, so the task
// registry can move out-of-process without touching the orchestrator.
type TaskStorage interface {
	SaveTask(task *models.CollectionTask) error
	GetTask(taskID string) (*models.CollectionTask, error)
	ListTasks() ([]*models.CollectionTask, error)
	DeleteTask(taskID string) error
	// DeleteTerminalBefore removes tasks in a terminal status that ended
	// before the cutoff. Returns the number of tasks evicted.
	DeleteTerminalBefore(cutoff time.Time) (int, error)
}

// ItemStorage is the buffered completed-items store. Producer is the
// engine, consumer is the external catalog; at-least-once handoff, the
// consumer deletes what it has durably persisted.
type ItemStorage interface {
	SaveItem(item *models.CollectedItem) error
	GetItem(id string) (*models.CollectedItem, error)
	ListItems(since time.Time, limit int) ([]*models.CollectedItem, error)
	ListItemsByTask(taskID string) ([]*models.CollectedItem, error)
	DeleteItems(ids []string) error
	DeleteItemsByTask(taskID string) error
	ClearAll() error
	CountItems() (int, error)
}

// StorageManager aggregates the storage interfaces behind one lifecycle.
type StorageManager interface {
	TaskStorage() TaskStorage
	ItemStorage() ItemStorage
	Close() error
}
