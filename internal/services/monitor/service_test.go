package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/services/events"
)

func newTestMonitor(t *testing.T) (*Service, interfaces.EventService) {
	t.Helper()

	config := common.NewDefaultConfig()
	eventService := events.NewService(common.GetLogger())

	svc, err := NewService(common.GetLogger(), config, eventService)
	require.NoError(t, err)
	return svc, eventService
}

func progressEvent(taskID, url string, status models.ItemProgressStatus, progress int, message string) models.ProgressEvent {
	return models.ProgressEvent{
		TaskID:    taskID,
		ItemURL:   url,
		Status:    status,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func TestInitializeTask_SeedsPending(t *testing.T) {
	svc, _ := newTestMonitor(t)

	svc.InitializeTask("task_1", 5)

	stats, ok := svc.GetStats("task_1")
	require.True(t, ok)
	assert.Equal(t, 5, stats.TotalItems)
	assert.Equal(t, 5, stats.Pending)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, stats.Processing)
	assert.False(t, stats.StartTime.IsZero())
}

func TestUpdateProductProgress_BucketAccounting(t *testing.T) {
	svc, _ := newTestMonitor(t)
	svc.InitializeTask("task_1", 2)

	svc.UpdateProductProgress(progressEvent("task_1", "u1", models.ItemProgressProcessing, 0, ""))
	stats, _ := svc.GetStats("task_1")
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Processing)

	// Repeated processing checkpoints do not shift buckets.
	svc.UpdateProductProgress(progressEvent("task_1", "u1", models.ItemProgressProcessing, 40, ""))
	stats, _ = svc.GetStats("task_1")
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Processing)

	svc.UpdateProductProgress(progressEvent("task_1", "u1", models.ItemProgressCompleted, 100, ""))
	stats, _ = svc.GetStats("task_1")
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 0, stats.Processing)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 50, stats.OverallProgress)
	assert.Greater(t, stats.AverageSpeed, float64(0))
	assert.NotNil(t, stats.EstimatedEndTime, "ETA is set while items remain")

	svc.UpdateProductProgress(progressEvent("task_1", "u2", models.ItemProgressFailed, 100, "fetch failed"))
	stats, _ = svc.GetStats("task_1")
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 100, stats.OverallProgress)
	assert.Nil(t, stats.EstimatedEndTime, "no ETA once nothing remains")
	assert.LessOrEqual(t, stats.Completed+stats.Failed, stats.TotalItems)
}

func TestUpdateProductProgress_TerminalItemNotReentered(t *testing.T) {
	svc, _ := newTestMonitor(t)
	svc.InitializeTask("task_1", 1)

	svc.UpdateProductProgress(progressEvent("task_1", "u1", models.ItemProgressCompleted, 100, ""))
	svc.UpdateProductProgress(progressEvent("task_1", "u1", models.ItemProgressProcessing, 0, ""))

	stats, _ := svc.GetStats("task_1")
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 0, stats.Processing)
}

func TestUpdateProductProgress_UnknownTaskDropped(t *testing.T) {
	svc, _ := newTestMonitor(t)

	svc.UpdateProductProgress(progressEvent("missing", "u1", models.ItemProgressCompleted, 100, ""))

	_, ok := svc.GetStats("missing")
	assert.False(t, ok)
}

func TestErrorLogCappedAtTen(t *testing.T) {
	svc, _ := newTestMonitor(t)
	svc.InitializeTask("task_1", 15)

	for i := 0; i < 15; i++ {
		url := fmt.Sprintf("u%d", i)
		svc.UpdateProductProgress(progressEvent("task_1", url, models.ItemProgressFailed, 100, fmt.Sprintf("error %d", i)))
	}

	stats, _ := svc.GetStats("task_1")
	require.Len(t, stats.Errors, 10)
	assert.Equal(t, "error 5", stats.Errors[0], "oldest entries roll off")
	assert.Equal(t, "error 14", stats.Errors[9])
}

func TestConcurrentCompletions_NoLostUpdate(t *testing.T) {
	svc, _ := newTestMonitor(t)
	svc.InitializeTask("task_1", 2)

	var wg sync.WaitGroup
	for _, url := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(itemURL string) {
			defer wg.Done()
			svc.UpdateProductProgress(progressEvent("task_1", itemURL, models.ItemProgressCompleted, 100, ""))
		}(url)
	}
	wg.Wait()

	stats, _ := svc.GetStats("task_1")
	assert.Equal(t, 2, stats.Completed, "concurrent updates must both land")
	assert.Equal(t, 0, stats.Pending)
}

func TestBroadcastOnEveryMutation(t *testing.T) {
	svc, eventService := newTestMonitor(t)

	var mu sync.Mutex
	var snapshots []models.TaskStats
	require.NoError(t, eventService.Subscribe(interfaces.EventTaskStats, func(_ context.Context, event interfaces.Event) error {
		stats, ok := event.Payload.(models.TaskStats)
		if !ok {
			return fmt.Errorf("unexpected payload %T", event.Payload)
		}
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, stats)
		return nil
	}))

	svc.InitializeTask("task_1", 1)
	svc.UpdateProductProgress(progressEvent("task_1", "u1", models.ItemProgressCompleted, 100, ""))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, snapshot := range snapshots {
			if snapshot.Completed == 1 {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond, "completion snapshot must reach subscribers")
}

func TestSweepStaleTasks(t *testing.T) {
	svc, eventService := newTestMonitor(t)

	var mu sync.Mutex
	var cleaned []string
	require.NoError(t, eventService.Subscribe(interfaces.EventTaskCleanup, func(_ context.Context, event interfaces.Event) error {
		mu.Lock()
		defer mu.Unlock()
		cleaned = append(cleaned, event.Payload.(string))
		return nil
	}))

	svc.InitializeTask("task_old", 1)
	svc.UpdateProductProgress(progressEvent("task_old", "u1", models.ItemProgressCompleted, 100, ""))
	svc.InitializeTask("task_running", 2)
	svc.UpdateProductProgress(progressEvent("task_running", "u1", models.ItemProgressCompleted, 100, ""))

	// Backdate both tasks past the retention period.
	svc.mu.Lock()
	svc.tasks["task_old"].stats.StartTime = time.Now().Add(-25 * time.Hour)
	svc.tasks["task_running"].stats.StartTime = time.Now().Add(-25 * time.Hour)
	svc.mu.Unlock()

	evicted := svc.SweepStaleTasks()
	assert.Equal(t, 1, evicted, "only terminal tasks are evicted")

	_, ok := svc.GetStats("task_old")
	assert.False(t, ok)
	_, ok = svc.GetStats("task_running")
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(cleaned) == 1 && cleaned[0] == "task_old"
	}, time.Second, 10*time.Millisecond)
}

func TestSweepStaleTasks_EvictsFailedTaskWithoutItemEvents(t *testing.T) {
	svc, _ := newTestMonitor(t)

	// A task that fails before any item starts (shop discovery error) never
	// emits item events, so its counters stay at zero forever.
	svc.InitializeTask("task_failed", 5)
	svc.MarkTaskFailed("task_failed")

	svc.mu.Lock()
	svc.tasks["task_failed"].stats.StartTime = time.Now().Add(-25 * time.Hour)
	svc.mu.Unlock()

	evicted := svc.SweepStaleTasks()
	assert.Equal(t, 1, evicted, "failed tasks are terminal regardless of counters")

	_, ok := svc.GetStats("task_failed")
	assert.False(t, ok)
}

func TestMarkTaskFailed_UnknownTaskIgnored(t *testing.T) {
	svc, _ := newTestMonitor(t)

	svc.MarkTaskFailed("missing")

	_, ok := svc.GetStats("missing")
	assert.False(t, ok)
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	svc, _ := newTestMonitor(t)
	svc.InitializeTask("task_1", 1)
	svc.InitializeTask("task_2", 3)

	snapshot := svc.Snapshot()
	require.Len(t, snapshot, 2)

	// Mutating the snapshot must not affect the monitor's state.
	snapshot[0].Completed = 99
	stats, _ := svc.GetStats(snapshot[0].TaskID)
	assert.NotEqual(t, 99, stats.Completed)
}
