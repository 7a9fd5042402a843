package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// TaskStorage implements the TaskStorage interface for Badger
type TaskStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTaskStorage creates a new TaskStorage instance
func NewTaskStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TaskStorage {
	return &TaskStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TaskStorage) SaveTask(task *models.CollectionTask) error {
	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}

	if err := s.db.Store().Upsert(task.ID, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

func (s *TaskStorage) GetTask(taskID string) (*models.CollectionTask, error) {
	var task models.CollectionTask
	if err := s.db.Store().Get(taskID, &task); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

func (s *TaskStorage) ListTasks() ([]*models.CollectionTask, error) {
	var tasks []models.CollectionTask
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&tasks, query); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	result := make([]*models.CollectionTask, len(tasks))
	for i := range tasks {
		result[i] = &tasks[i]
	}
	return result, nil
}

func (s *TaskStorage) DeleteTask(taskID string) error {
	if err := s.db.Store().Delete(taskID, &models.CollectionTask{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// DeleteTerminalBefore evicts completed/failed tasks that ended before the
// cutoff. Used by the startup sweep so tasks that aged out while the process
// was down do not linger.
func (s *TaskStorage) DeleteTerminalBefore(cutoff time.Time) (int, error) {
	var stale []models.CollectionTask
	query := badgerhold.Where("Status").In(
		badgerhold.Slice([]models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusFailed})...,
	).And("EndedAt").Lt(cutoff)
	if err := s.db.Store().Find(&stale, query); err != nil {
		return 0, fmt.Errorf("failed to find stale tasks: %w", err)
	}

	for i := range stale {
		if err := s.db.Store().Delete(stale[i].ID, &models.CollectionTask{}); err != nil && err != badgerhold.ErrNotFound {
			return 0, fmt.Errorf("failed to delete stale task %s: %w", stale[i].ID, err)
		}
	}

	if len(stale) > 0 {
		s.logger.Info().
			Int("evicted", len(stale)).
			Msg("Evicted stale tasks from storage")
	}

	return len(stale), nil
}
