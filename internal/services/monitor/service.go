package monitor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

// taskState is the monitor's private per-task bookkeeping behind a TaskStats
// aggregate.
type taskState struct {
	stats       models.TaskStats
	itemStatus  map[string]models.ItemProgressStatus
	completions []time.Time
	failed      bool
}

// Service is the progress monitor. It rebuilds per-task aggregates from
// ProgressEvents and republishes snapshots to subscribers. TaskStats is
// derived state; the monitor is never the source of truth for task
// existence.
type Service struct {
	logger       arbor.ILogger
	events       interfaces.EventService
	mu           sync.Mutex
	tasks        map[string]*taskState
	speedWindow  time.Duration
	errorLogSize int
	retainFor    time.Duration
	schedule     string
	cron         *cron.Cron
}

// NewService creates the progress monitor and subscribes it to the engine's
// progress events.
func NewService(logger arbor.ILogger, config *common.Config, events interfaces.EventService) (*Service, error) {
	speedWindow := config.Monitor.SpeedWindow
	if speedWindow <= 0 {
		speedWindow = 5 * time.Minute
	}
	errorLogSize := config.Monitor.ErrorLogSize
	if errorLogSize <= 0 {
		errorLogSize = 10
	}
	retainFor := config.Monitor.RetainFor
	if retainFor <= 0 {
		retainFor = 24 * time.Hour
	}

	s := &Service{
		logger:       logger,
		events:       events,
		tasks:        make(map[string]*taskState),
		speedWindow:  speedWindow,
		errorLogSize: errorLogSize,
		retainFor:    retainFor,
		schedule:     config.Monitor.SweepSchedule,
	}

	if err := events.Subscribe(interfaces.EventProductProgress, s.handleProgressEvent); err != nil {
		return nil, fmt.Errorf("failed to subscribe to progress events: %w", err)
	}

	return s, nil
}

// InitializeTask seeds the aggregate for a task: all items pending, counters
// zero, start time now.
func (s *Service) InitializeTask(taskID string, totalItems int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[taskID] = &taskState{
		stats: models.TaskStats{
			TaskID:     taskID,
			TotalItems: totalItems,
			Pending:    totalItems,
			StartTime:  time.Now(),
		},
		itemStatus: make(map[string]models.ItemProgressStatus),
	}

	s.logger.Info().
		Str("task_id", taskID).
		Int("total_items", totalItems).
		Msg("Task progress initialized")

	s.broadcastLocked(taskID)
}

// UpdateProductProgress is the single mutation entry point. Concurrent item
// completions for one task serialize on the monitor mutex so no counter
// update is lost.
func (s *Service) UpdateProductProgress(event models.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.tasks[event.TaskID]
	if !ok {
		s.logger.Warn().
			Str("task_id", event.TaskID).
			Str("item_url", event.ItemURL).
			Msg("Progress event for unknown task dropped")
		return
	}

	previous, seen := state.itemStatus[event.ItemURL]
	if seen && isTerminalItem(previous) {
		// completed/failed are terminal per item.
		return
	}

	if seen {
		s.decrementBucket(state, previous)
	} else {
		s.decrementBucket(state, models.ItemProgressPending)
	}
	s.incrementBucket(state, event.Status)
	state.itemStatus[event.ItemURL] = event.Status

	now := time.Now()
	if event.Status == models.ItemProgressCompleted {
		state.completions = append(state.completions, now)
	}
	if event.Status == models.ItemProgressFailed && event.Message != "" {
		state.stats.Errors = append(state.stats.Errors, event.Message)
		if len(state.stats.Errors) > s.errorLogSize {
			state.stats.Errors = state.stats.Errors[len(state.stats.Errors)-s.errorLogSize:]
		}
	}

	s.recomputeLocked(state, now)
	s.broadcastLocked(event.TaskID)
}

// GetStats returns a copy of the aggregate for one task.
func (s *Service) GetStats(taskID string) (models.TaskStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.tasks[taskID]
	if !ok {
		return models.TaskStats{}, false
	}
	return copyStats(state.stats), true
}

// Snapshot returns copies of all known task aggregates, for replay to newly
// connected observers.
func (s *Service) Snapshot() []models.TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]models.TaskStats, 0, len(s.tasks))
	for _, state := range s.tasks {
		snapshot = append(snapshot, copyStats(state.stats))
	}
	return snapshot
}

// MarkTaskFailed flags a task terminal after an orchestration-level failure.
// Such a task may never emit item events, so the counters alone would never
// satisfy the sweep's terminality check.
func (s *Service) MarkTaskFailed(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.tasks[taskID]
	if !ok {
		return
	}
	state.failed = true

	s.logger.Info().
		Str("task_id", taskID).
		Msg("Task marked failed")

	s.broadcastLocked(taskID)
}

// RemoveTask drops the aggregate for a deleted task.
func (s *Service) RemoveTask(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskID)
}

// SweepStaleTasks evicts aggregates for tasks that reached a terminal state
// and started longer ago than the retention period. Each eviction is
// announced so observers can drop their local copy.
func (s *Service) SweepStaleTasks() int {
	cutoff := time.Now().Add(-s.retainFor)

	s.mu.Lock()
	var evicted []string
	for taskID, state := range s.tasks {
		if (state.failed || isTerminalTask(&state.stats)) && state.stats.StartTime.Before(cutoff) {
			delete(s.tasks, taskID)
			evicted = append(evicted, taskID)
		}
	}
	s.mu.Unlock()

	for _, taskID := range evicted {
		s.logger.Info().
			Str("task_id", taskID).
			Msg("Evicted stale task stats")
		if err := s.events.Publish(context.Background(), interfaces.Event{
			Type:    interfaces.EventTaskCleanup,
			Payload: taskID,
		}); err != nil {
			s.logger.Warn().Err(err).Str("task_id", taskID).Msg("Cleanup event delivery failed")
		}
	}

	return len(evicted)
}

// StartCleanupScheduler begins the periodic stale-task sweep.
func (s *Service) StartCleanupScheduler() error {
	if s.schedule == "" {
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if evicted := s.SweepStaleTasks(); evicted > 0 {
			s.logger.Info().
				Int("evicted", evicted).
				Msg("Stale task sweep completed")
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()

	s.logger.Info().
		Str("schedule", s.schedule).
		Dur("retain_for", s.retainFor).
		Msg("Cleanup scheduler started")

	return nil
}

// Stop halts the cleanup scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Service) handleProgressEvent(_ context.Context, event interfaces.Event) error {
	progress, ok := event.Payload.(models.ProgressEvent)
	if !ok {
		return fmt.Errorf("unexpected progress payload type %T", event.Payload)
	}
	s.UpdateProductProgress(progress)
	return nil
}

// recomputeLocked refreshes derived fields: overall progress, speeds, ETA.
func (s *Service) recomputeLocked(state *taskState, now time.Time) {
	stats := &state.stats

	if stats.TotalItems > 0 {
		stats.OverallProgress = int(math.Round(float64(stats.Completed+stats.Failed) / float64(stats.TotalItems) * 100))
	}

	elapsed := now.Sub(stats.StartTime).Minutes()
	if elapsed > 0 && stats.Completed > 0 {
		stats.AverageSpeed = float64(stats.Completed) / elapsed
	} else {
		stats.AverageSpeed = 0
	}

	// Current speed counts completions inside the trailing window.
	windowStart := now.Add(-s.speedWindow)
	kept := state.completions[:0]
	for _, completion := range state.completions {
		if completion.After(windowStart) {
			kept = append(kept, completion)
		}
	}
	state.completions = kept

	windowMinutes := elapsed
	if windowMinutes > s.speedWindow.Minutes() {
		windowMinutes = s.speedWindow.Minutes()
	}
	if windowMinutes > 0 && len(state.completions) > 0 {
		stats.CurrentSpeed = float64(len(state.completions)) / windowMinutes
	} else {
		stats.CurrentSpeed = 0
	}

	remaining := stats.Pending + stats.Processing
	if stats.AverageSpeed > 0 && remaining > 0 {
		eta := now.Add(time.Duration(float64(remaining) / stats.AverageSpeed * float64(time.Minute)))
		stats.EstimatedEndTime = &eta
	} else {
		stats.EstimatedEndTime = nil
	}
}

// broadcastLocked publishes a snapshot of one task's stats. Called with the
// mutex held; the publish itself is asynchronous.
func (s *Service) broadcastLocked(taskID string) {
	state, ok := s.tasks[taskID]
	if !ok {
		return
	}

	snapshot := copyStats(state.stats)
	if err := s.events.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventTaskStats,
		Payload: snapshot,
	}); err != nil {
		s.logger.Warn().
			Err(err).
			Str("task_id", taskID).
			Msg("Stats broadcast failed")
	}
}

func (s *Service) decrementBucket(state *taskState, status models.ItemProgressStatus) {
	switch status {
	case models.ItemProgressPending:
		if state.stats.Pending > 0 {
			state.stats.Pending--
		}
	case models.ItemProgressProcessing:
		if state.stats.Processing > 0 {
			state.stats.Processing--
		}
	case models.ItemProgressCompleted:
		if state.stats.Completed > 0 {
			state.stats.Completed--
		}
	case models.ItemProgressFailed:
		if state.stats.Failed > 0 {
			state.stats.Failed--
		}
	}
}

func (s *Service) incrementBucket(state *taskState, status models.ItemProgressStatus) {
	switch status {
	case models.ItemProgressPending:
		state.stats.Pending++
	case models.ItemProgressProcessing:
		state.stats.Processing++
	case models.ItemProgressCompleted:
		state.stats.Completed++
	case models.ItemProgressFailed:
		state.stats.Failed++
	}
}

func isTerminalItem(status models.ItemProgressStatus) bool {
	return status == models.ItemProgressCompleted || status == models.ItemProgressFailed
}

func isTerminalTask(stats *models.TaskStats) bool {
	return stats.TotalItems > 0 && stats.Completed+stats.Failed >= stats.TotalItems
}

func copyStats(stats models.TaskStats) models.TaskStats {
	copied := stats
	if stats.Errors != nil {
		copied.Errors = append([]string(nil), stats.Errors...)
	}
	if stats.EstimatedEndTime != nil {
		eta := *stats.EstimatedEndTime
		copied.EstimatedEndTime = &eta
	}
	return copied
}
