package badger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()

	manager, err := NewManager(common.GetLogger(), &common.BadgerConfig{
		Path: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	return manager
}

func sampleTask(id string, status models.TaskStatus, endedAt time.Time) *models.CollectionTask {
	return &models.CollectionTask{
		ID:        id,
		Name:      "taobao batch",
		Platform:  models.PlatformTaobao,
		Method:    models.MethodBatch,
		Status:    status,
		URLs:      []string{"https://item.taobao.com/item.htm?id=1"},
		CreatedAt: time.Now(),
		EndedAt:   endedAt,
	}
}

func TestTaskStorage_SaveGetDelete(t *testing.T) {
	storage := newTestManager(t).TaskStorage()

	task := sampleTask("task_1", models.TaskStatusPending, time.Time{})
	require.NoError(t, storage.SaveTask(task))

	loaded, err := storage.GetTask("task_1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, task.Name, loaded.Name)
	assert.Equal(t, models.TaskStatusPending, loaded.Status)

	// Upsert overwrites in place.
	task.Status = models.TaskStatusProcessing
	require.NoError(t, storage.SaveTask(task))
	loaded, err = storage.GetTask("task_1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusProcessing, loaded.Status)

	require.NoError(t, storage.DeleteTask("task_1"))
	loaded, err = storage.GetTask("task_1")
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing task is not an error")
}

func TestTaskStorage_DeleteTerminalBefore(t *testing.T) {
	storage := newTestManager(t).TaskStorage()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, storage.SaveTask(sampleTask("task_old_done", models.TaskStatusCompleted, old)))
	require.NoError(t, storage.SaveTask(sampleTask("task_old_failed", models.TaskStatusFailed, old)))
	require.NoError(t, storage.SaveTask(sampleTask("task_recent", models.TaskStatusCompleted, time.Now())))
	require.NoError(t, storage.SaveTask(sampleTask("task_running", models.TaskStatusProcessing, time.Time{})))

	evicted, err := storage.DeleteTerminalBefore(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, evicted)

	remaining, err := storage.ListTasks()
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestItemStorage_HandoffLifecycle(t *testing.T) {
	storage := newTestManager(t).ItemStorage()

	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 5; i++ {
		require.NoError(t, storage.SaveItem(&models.CollectedItem{
			ID:          fmt.Sprintf("item_%d", i),
			TaskID:      "task_1",
			Title:       fmt.Sprintf("item %d", i),
			CollectedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, storage.SaveItem(&models.CollectedItem{
		ID:          "item_other",
		TaskID:      "task_2",
		Title:       "other",
		CollectedAt: base,
	}))

	count, err := storage.CountItems()
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	// since + limit paging for the external consumer.
	items, err := storage.ListItems(base.Add(3*time.Minute), 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = storage.ListItems(time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	byTask, err := storage.ListItemsByTask("task_1")
	require.NoError(t, err)
	assert.Len(t, byTask, 5)

	// Consumer deletes what it has persisted.
	require.NoError(t, storage.DeleteItems([]string{"item_1", "item_2"}))
	count, _ = storage.CountItems()
	assert.Equal(t, 4, count)

	require.NoError(t, storage.DeleteItemsByTask("task_1"))
	count, _ = storage.CountItems()
	assert.Equal(t, 1, count)

	require.NoError(t, storage.ClearAll())
	count, _ = storage.CountItems()
	assert.Equal(t, 0, count)
}
