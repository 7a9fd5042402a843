package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ItemStorage implements the completed-items store for Badger. The engine
// appends; the external catalog consumes and deletes what it has durably
// persisted.
type ItemStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewItemStorage creates a new ItemStorage instance
func NewItemStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ItemStorage {
	return &ItemStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ItemStorage) SaveItem(item *models.CollectedItem) error {
	if item.ID == "" {
		return fmt.Errorf("item ID is required")
	}

	if err := s.db.Store().Upsert(item.ID, item); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

func (s *ItemStorage) GetItem(id string) (*models.CollectedItem, error) {
	var item models.CollectedItem
	if err := s.db.Store().Get(id, &item); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

func (s *ItemStorage) ListItems(since time.Time, limit int) ([]*models.CollectedItem, error) {
	query := badgerhold.Where("ID").Ne("")
	if !since.IsZero() {
		query = badgerhold.Where("CollectedAt").Ge(since)
	}
	query = query.SortBy("CollectedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var items []models.CollectedItem
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	result := make([]*models.CollectedItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

func (s *ItemStorage) ListItemsByTask(taskID string) ([]*models.CollectedItem, error) {
	var items []models.CollectedItem
	if err := s.db.Store().Find(&items, badgerhold.Where("TaskID").Eq(taskID)); err != nil {
		return nil, fmt.Errorf("failed to list items for task: %w", err)
	}

	result := make([]*models.CollectedItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

func (s *ItemStorage) DeleteItems(ids []string) error {
	for _, id := range ids {
		if err := s.db.Store().Delete(id, &models.CollectedItem{}); err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to delete item %s: %w", id, err)
		}
	}
	return nil
}

func (s *ItemStorage) DeleteItemsByTask(taskID string) error {
	if err := s.db.Store().DeleteMatching(&models.CollectedItem{}, badgerhold.Where("TaskID").Eq(taskID)); err != nil {
		return fmt.Errorf("failed to delete items for task: %w", err)
	}
	return nil
}

func (s *ItemStorage) ClearAll() error {
	if err := s.db.Store().DeleteMatching(&models.CollectedItem{}, badgerhold.Where("ID").Ne("")); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	s.logger.Info().Msg("Cleared all buffered items")
	return nil
}

func (s *ItemStorage) CountItems() (int, error) {
	count, err := s.db.Store().Count(&models.CollectedItem{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return int(count), nil
}
