package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/services/collector"
)

// TaskSummary describes one created task in a create-tasks response.
type TaskSummary struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	Method     models.CollectionMethod `json:"method"`
	Platform   models.Platform         `json:"platform"`
	TotalItems int                     `json:"total_items"`
}

// CreateResult is the outcome of grouping classified URLs into tasks.
type CreateResult struct {
	TasksCreated int           `json:"tasks_created"`
	Tasks        []TaskSummary `json:"tasks"`
}

// Monitor is the progress-tracking surface the orchestrator drives.
type Monitor interface {
	InitializeTask(taskID string, totalItems int)
	MarkTaskFailed(taskID string)
	RemoveTask(taskID string)
}

// Service is the task orchestrator: it groups classified URLs into tasks,
// runs the engine asynchronously, and hands successful items to the
// completed-items store.
type Service struct {
	logger   arbor.ILogger
	config   *common.Config
	engine   *collector.Service
	monitor  Monitor
	storage  interfaces.StorageManager
	events   interfaces.EventService
	validate *validator.Validate
	wg       sync.WaitGroup
}

// NewService creates the task orchestrator and subscribes it to cleanup
// events so evicted tasks are also removed from storage.
func NewService(
	logger arbor.ILogger,
	config *common.Config,
	engine *collector.Service,
	monitorService Monitor,
	storage interfaces.StorageManager,
	events interfaces.EventService,
) (*Service, error) {
	s := &Service{
		logger:   logger,
		config:   config,
		engine:   engine,
		monitor:  monitorService,
		storage:  storage,
		events:   events,
		validate: validator.New(),
	}

	if err := events.Subscribe(interfaces.EventTaskCleanup, s.handleTaskCleanup); err != nil {
		return nil, fmt.Errorf("failed to subscribe to cleanup events: %w", err)
	}

	return s, nil
}

// CreateTasks groups classified URLs into tasks by intent and starts each
// task asynchronously. Invalid entries are a hard precondition violation,
// not a retryable condition.
func (s *Service) CreateTasks(urls []models.ClassifiedURL, settings models.TaskSettings) (*CreateResult, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no URLs supplied")
	}
	for _, u := range urls {
		if !u.Valid {
			return nil, fmt.Errorf("unclassified URL %q must be excluded before task creation", u.OriginalURL)
		}
	}
	if err := s.validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("invalid task settings: %w", err)
	}

	groups := s.groupIntoTasks(urls, settings)

	result := &CreateResult{Tasks: make([]TaskSummary, 0, len(groups))}
	for _, group := range groups {
		task := group.task
		if err := s.storage.TaskStorage().SaveTask(task); err != nil {
			return nil, fmt.Errorf("failed to persist task: %w", err)
		}
		s.monitor.InitializeTask(task.ID, task.TotalItems)

		result.Tasks = append(result.Tasks, TaskSummary{
			ID:         task.ID,
			Name:       task.Name,
			Method:     task.Method,
			Platform:   task.Platform,
			TotalItems: task.TotalItems,
		})

		s.wg.Add(1)
		go func(task *models.CollectionTask, targets []models.ClassifiedURL) {
			defer s.wg.Done()
			s.runTask(context.Background(), task, targets)
		}(task, group.targets)
	}
	result.TasksCreated = len(result.Tasks)

	s.logger.Info().
		Int("tasks_created", result.TasksCreated).
		Int("urls", len(urls)).
		Msg("Collection tasks created")

	return result, nil
}

// GetTask returns one task with its buffered items.
func (s *Service) GetTask(taskID string) (*models.CollectionTask, []*models.CollectedItem, error) {
	task, err := s.storage.TaskStorage().GetTask(taskID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.storage.ItemStorage().ListItemsByTask(taskID)
	if err != nil {
		return nil, nil, err
	}
	return task, items, nil
}

// ListTasks returns all known tasks.
func (s *Service) ListTasks() ([]*models.CollectionTask, error) {
	return s.storage.TaskStorage().ListTasks()
}

// DeleteTask removes a task, its buffered items, and its monitor state.
func (s *Service) DeleteTask(taskID string) error {
	if err := s.storage.ItemStorage().DeleteItemsByTask(taskID); err != nil {
		return fmt.Errorf("failed to delete task items: %w", err)
	}
	if err := s.storage.TaskStorage().DeleteTask(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.monitor.RemoveTask(taskID)

	s.logger.Info().
		Str("task_id", taskID).
		Msg("Task deleted")

	return nil
}

// EvictStaleTasks removes terminal tasks that ended before the retention
// cutoff from storage. Run at startup to clear anything that aged out while
// the process was down.
func (s *Service) EvictStaleTasks() (int, error) {
	retainFor := s.config.Monitor.RetainFor
	if retainFor <= 0 {
		retainFor = 24 * time.Hour
	}
	return s.storage.TaskStorage().DeleteTerminalBefore(time.Now().Add(-retainFor))
}

// Wait blocks until all running tasks finish. Used by graceful shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}

// taskGroup pairs a task with the classified targets it runs. Targets travel
// with the group so a task is never re-matched against the input by URL
// string.
type taskGroup struct {
	task    *models.CollectionTask
	targets []models.ClassifiedURL
}

// groupIntoTasks builds tasks from classified URLs: one shop task per shop
// URL, and per-platform single/batch tasks for product URLs. URLs normalizing
// to the same canonical form collapse to one target, so a task never carries
// more work than its TotalItems.
func (s *Service) groupIntoTasks(urls []models.ClassifiedURL, settings models.TaskSettings) []taskGroup {
	now := time.Now()
	var groups []taskGroup

	newTask := func(platform models.Platform, method models.CollectionMethod, taskURLs []string, totalItems int) *models.CollectionTask {
		return &models.CollectionTask{
			ID:         common.NewTaskID(),
			Name:       fmt.Sprintf("%s %s %s", platform, method, now.Format("2006-01-02 15:04:05")),
			Platform:   platform,
			Method:     method,
			Status:     models.TaskStatusPending,
			URLs:       taskURLs,
			TotalItems: totalItems,
			Settings:   settings,
			CreatedAt:  now,
		}
	}

	productsByPlatform := make(map[models.Platform][]models.ClassifiedURL)
	var platformOrder []models.Platform
	seen := make(map[string]bool)

	for _, u := range urls {
		if seen[u.NormalizedURL] {
			s.logger.Debug().
				Str("url", u.OriginalURL).
				Str("normalized", u.NormalizedURL).
				Msg("Duplicate URL collapsed during grouping")
			continue
		}
		seen[u.NormalizedURL] = true

		if u.Intent == models.IntentShop {
			// Total is unknown until discovery; the cap is the contract.
			maxItems := settings.MaxItems
			if maxItems <= 0 {
				maxItems = s.config.Collector.MaxItems
			}
			groups = append(groups, taskGroup{
				task:    newTask(u.Platform, models.MethodShop, []string{u.NormalizedURL}, maxItems),
				targets: []models.ClassifiedURL{u},
			})
			continue
		}

		if _, ok := productsByPlatform[u.Platform]; !ok {
			platformOrder = append(platformOrder, u.Platform)
		}
		productsByPlatform[u.Platform] = append(productsByPlatform[u.Platform], u)
	}

	for _, platform := range platformOrder {
		targets := productsByPlatform[platform]
		method := models.MethodBatch
		if len(targets) == 1 {
			method = models.MethodSingle
		}
		taskURLs := make([]string, 0, len(targets))
		for _, u := range targets {
			taskURLs = append(taskURLs, u.NormalizedURL)
		}
		groups = append(groups, taskGroup{
			task:    newTask(platform, method, taskURLs, len(taskURLs)),
			targets: targets,
		})
	}

	return groups
}

// runTask executes one task end to end and owns its status transitions.
func (s *Service) runTask(ctx context.Context, task *models.CollectionTask, targets []models.ClassifiedURL) {
	task.Status = models.TaskStatusProcessing
	task.StartedAt = time.Now()
	s.persistTask(task)

	s.logger.Info().
		Str("task_id", task.ID).
		Str("method", string(task.Method)).
		Int("total_items", task.TotalItems).
		Msg("Task started")

	var results []collector.ItemResult
	var runErr error

	switch task.Method {
	case models.MethodShop:
		var discovered []models.ClassifiedURL
		discovered, runErr = s.engine.DiscoverShopTargets(ctx, targets[0], task.TotalItems, task.Settings)
		if runErr == nil {
			// Discovery fixes the real total; the monitor was seeded with
			// the cap and is re-seeded before any item starts.
			task.TotalItems = len(discovered)
			s.monitor.InitializeTask(task.ID, task.TotalItems)
			s.persistTask(task)

			results = s.engine.CollectBatch(ctx, discovered, task.ID, s.engine.ShopSettings(task.Settings))
			for _, result := range results {
				s.recordResult(task, result)
			}
		}
	default:
		results = s.engine.CollectBatch(ctx, targets, task.ID, task.Settings)
		for _, result := range results {
			s.recordResult(task, result)
		}
	}

	task.EndedAt = time.Now()
	if runErr != nil {
		taskErr := &models.TaskError{TaskID: task.ID, Err: runErr}
		task.Status = models.TaskStatusFailed
		task.ErrorMessage = taskErr.Error()
		// No item events fire for an orchestration-level failure, so the
		// monitor must be told the task is terminal or its aggregate would
		// outlive every sweep.
		s.monitor.MarkTaskFailed(task.ID)
		s.logger.Error().
			Str("task_id", task.ID).
			Err(runErr).
			Msg("Task failed at orchestration level")
	} else {
		task.Status = models.TaskStatusCompleted
		task.Progress = 100
		s.logger.Info().
			Str("task_id", task.ID).
			Int("collected", task.CollectedItems).
			Int("failed", task.FailedItems).
			Msg("Task completed")
	}
	s.persistTask(task)
}

// recordResult folds one item outcome into the task counters and hands
// successful items to the completed-items store.
func (s *Service) recordResult(task *models.CollectionTask, result collector.ItemResult) {
	if result.Success && result.Item != nil {
		if err := s.storage.ItemStorage().SaveItem(result.Item); err != nil {
			s.logger.Error().
				Err(err).
				Str("task_id", task.ID).
				Str("item_id", result.Item.ID).
				Msg("Item handoff failed")
			task.FailedItems++
		} else {
			task.CollectedItems++
		}
	} else {
		task.FailedItems++
	}

	if task.TotalItems > 0 {
		task.Progress = float64(task.CollectedItems+task.FailedItems) / float64(task.TotalItems) * 100
	}
	s.persistTask(task)
}

func (s *Service) persistTask(task *models.CollectionTask) {
	if err := s.storage.TaskStorage().SaveTask(task); err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("Task persistence failed")
	}
}

// handleTaskCleanup removes storage for tasks evicted by the monitor sweep.
func (s *Service) handleTaskCleanup(_ context.Context, event interfaces.Event) error {
	taskID, ok := event.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected cleanup payload type %T", event.Payload)
	}

	task, err := s.storage.TaskStorage().GetTask(taskID)
	if err != nil || task == nil {
		return nil
	}
	if !task.Status.IsTerminal() {
		return nil
	}

	if err := s.DeleteTask(taskID); err != nil {
		return err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Msg("Stale task archived")

	return nil
}
