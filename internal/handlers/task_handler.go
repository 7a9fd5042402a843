package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/services/orchestrator"
)

// TaskService is the orchestration surface the task API drives.
type TaskService interface {
	CreateTasks(urls []models.ClassifiedURL, settings models.TaskSettings) (*orchestrator.CreateResult, error)
	GetTask(taskID string) (*models.CollectionTask, []*models.CollectedItem, error)
	ListTasks() ([]*models.CollectionTask, error)
	DeleteTask(taskID string) error
}

// URLClassifier turns raw URLs into classified ones.
type URLClassifier interface {
	ClassifyAll(rawURLs []string) []models.ClassifiedURL
}

// StatsProvider exposes per-task progress aggregates.
type StatsProvider interface {
	GetStats(taskID string) (models.TaskStats, bool)
}

// TaskHandler handles task-related API requests
type TaskHandler struct {
	tasks      TaskService
	classifier URLClassifier
	stats      StatsProvider
	logger     arbor.ILogger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks TaskService, urlClassifier URLClassifier, stats StatsProvider, logger arbor.ILogger) *TaskHandler {
	return &TaskHandler{
		tasks:      tasks,
		classifier: urlClassifier,
		stats:      stats,
		logger:     logger,
	}
}

// CreateTasksRequest is the create-tasks request body.
type CreateTasksRequest struct {
	URLs     []string            `json:"urls"`
	Settings models.TaskSettings `json:"settings"`
}

// ClassifyRequest is the classify request body.
type ClassifyRequest struct {
	URLs []string `json:"urls"`
}

// ClassifyHandler classifies raw URLs without creating tasks
// POST /api/classify
func (h *TaskHandler) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		WriteError(w, http.StatusBadRequest, "urls must not be empty")
		return
	}

	results := h.classifier.ClassifyAll(req.URLs)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// CreateTasksHandler classifies the submitted URLs and groups them into
// collection tasks. URLs matching no known platform are a hard request
// error; nothing is created until every URL classifies.
// POST /api/tasks
func (h *TaskHandler) CreateTasksHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		WriteError(w, http.StatusBadRequest, "urls must not be empty")
		return
	}

	classified := h.classifier.ClassifyAll(req.URLs)
	var invalid []string
	for _, u := range classified {
		if !u.Valid {
			invalid = append(invalid, u.OriginalURL)
		}
	}
	if len(invalid) > 0 {
		h.logger.Warn().
			Int("invalid", len(invalid)).
			Msg("Task creation rejected: unclassifiable URLs")
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":       "error",
			"error":        "some URLs match no supported platform",
			"invalid_urls": invalid,
		})
		return
	}

	result, err := h.tasks.CreateTasks(classified, req.Settings)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create tasks")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, result)
}

// ListTasksHandler returns all known tasks
// GET /api/tasks
func (h *TaskHandler) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListTasks()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list tasks")
		WriteError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":       tasks,
		"total_count": len(tasks),
	})
}

// GetTaskHandler returns a single task with its buffered items
// GET /api/tasks/{id}
func (h *TaskHandler) GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID := taskIDFromPath(r.URL.Path)
	if taskID == "" {
		WriteError(w, http.StatusBadRequest, "Task ID is required")
		return
	}

	task, items, err := h.tasks.GetTask(taskID)
	if err != nil {
		h.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to get task")
		WriteError(w, http.StatusInternalServerError, "Failed to get task")
		return
	}
	if task == nil {
		WriteError(w, http.StatusNotFound, "Task not found")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"task":  task,
		"items": items,
	})
}

// GetTaskStatsHandler returns the live progress aggregate for a task
// GET /api/tasks/{id}/stats
func (h *TaskHandler) GetTaskStatsHandler(w http.ResponseWriter, r *http.Request) {
	taskID := taskIDFromPath(strings.TrimSuffix(r.URL.Path, "/stats"))
	if taskID == "" {
		WriteError(w, http.StatusBadRequest, "Task ID is required")
		return
	}

	stats, ok := h.stats.GetStats(taskID)
	if !ok {
		WriteError(w, http.StatusNotFound, "No progress tracked for task")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// DeleteTaskHandler removes a task and its buffered items
// DELETE /api/tasks/{id}
func (h *TaskHandler) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	taskID := taskIDFromPath(r.URL.Path)
	if taskID == "" {
		WriteError(w, http.StatusBadRequest, "Task ID is required")
		return
	}

	if err := h.tasks.DeleteTask(taskID); err != nil {
		h.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to delete task")
		WriteError(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	h.logger.Info().Str("task_id", taskID).Msg("Task deleted via API")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"task_id": taskID,
		"message": "Task deleted successfully",
	})
}

// taskIDFromPath extracts the task ID from /api/tasks/{id}.
func taskIDFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
