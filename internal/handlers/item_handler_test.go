package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

// mockItemStorage implements interfaces.ItemStorage for testing
type mockItemStorage struct {
	listFunc     func(since time.Time, limit int) ([]*models.CollectedItem, error)
	deleteFunc   func(ids []string) error
	clearFunc    func() error
	countFunc    func() (int, error)
	lastSince    time.Time
	lastLimit    int
	clearedCalls int
}

func (m *mockItemStorage) SaveItem(*models.CollectedItem) error          { return nil }
func (m *mockItemStorage) GetItem(string) (*models.CollectedItem, error) { return nil, nil }

func (m *mockItemStorage) ListItems(since time.Time, limit int) ([]*models.CollectedItem, error) {
	m.lastSince = since
	m.lastLimit = limit
	if m.listFunc != nil {
		return m.listFunc(since, limit)
	}
	return nil, nil
}

func (m *mockItemStorage) ListItemsByTask(string) ([]*models.CollectedItem, error) { return nil, nil }

func (m *mockItemStorage) DeleteItems(ids []string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ids)
	}
	return nil
}

func (m *mockItemStorage) DeleteItemsByTask(string) error { return nil }

func (m *mockItemStorage) ClearAll() error {
	m.clearedCalls++
	if m.clearFunc != nil {
		return m.clearFunc()
	}
	return nil
}

func (m *mockItemStorage) CountItems() (int, error) {
	if m.countFunc != nil {
		return m.countFunc()
	}
	return 0, nil
}

func TestListItemsHandler_SinceAndLimit(t *testing.T) {
	storage := &mockItemStorage{
		listFunc: func(time.Time, int) ([]*models.CollectedItem, error) {
			return []*models.CollectedItem{{ID: "item_1"}, {ID: "item_2"}}, nil
		},
		countFunc: func() (int, error) { return 7, nil },
	}
	handler := NewItemHandler(storage, common.GetLogger())

	since := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	req := httptest.NewRequest(http.MethodGet, "/api/items?since="+since+"&limit=2", nil)
	rec := httptest.NewRecorder()
	handler.ListItemsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, storage.lastLimit)
	assert.False(t, storage.lastSince.IsZero())
	assert.Contains(t, rec.Body.String(), `"total":7`)
	assert.Contains(t, rec.Body.String(), `"count":2`)
}

func TestListItemsHandler_BadSince(t *testing.T) {
	handler := NewItemHandler(&mockItemStorage{}, common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/items?since=yesterday", nil)
	rec := httptest.NewRecorder()
	handler.ListItemsHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteItemsHandler_ByIDs(t *testing.T) {
	var deleted []string
	storage := &mockItemStorage{
		deleteFunc: func(ids []string) error {
			deleted = ids
			return nil
		},
	}
	handler := NewItemHandler(storage, common.GetLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/items?ids=item_1,item_2,%20item_3", nil)
	rec := httptest.NewRecorder()
	handler.DeleteItemsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"item_1", "item_2", "item_3"}, deleted)
	assert.Zero(t, storage.clearedCalls)
}

func TestDeleteItemsHandler_ClearAll(t *testing.T) {
	storage := &mockItemStorage{}
	handler := NewItemHandler(storage, common.GetLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/items", nil)
	rec := httptest.NewRecorder()
	handler.DeleteItemsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, storage.clearedCalls)
}
