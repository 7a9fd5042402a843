package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
)

// StatsSource provides the monitor's current view of all tracked tasks.
type StatsSource interface {
	Snapshot() []models.TaskStats
}

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	storage interfaces.StorageManager
	stats   StatsSource
	started time.Time
	logger  arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(storage interfaces.StorageManager, stats StatsSource, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		storage: storage,
		stats:   stats,
		started: time.Now(),
		logger:  logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	totalTasks := 0
	if tasks, err := h.storage.TaskStorage().ListTasks(); err == nil {
		totalTasks = len(tasks)
	} else {
		h.logger.Warn().Err(err).Msg("Failed to count tasks for status")
	}

	bufferedItems, err := h.storage.ItemStorage().CountItems()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count buffered items for status")
	}

	activeTasks := 0
	if h.stats != nil {
		for _, stats := range h.stats.Snapshot() {
			if stats.Completed+stats.Failed < stats.TotalItems {
				activeTasks++
			}
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service":        "harvester",
		"status":         "ONLINE",
		"version":        common.GetVersion(),
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"total_tasks":    totalTasks,
		"active_tasks":   activeTasks,
		"buffered_items": bufferedItems,
	})
}
