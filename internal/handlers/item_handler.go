package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/interfaces"
)

// ItemHandler exposes the completed-items buffer to the external catalog.
// The contract is at-least-once: the consumer reads with GET and deletes
// only what it has durably persisted.
type ItemHandler struct {
	items  interfaces.ItemStorage
	logger arbor.ILogger
}

// NewItemHandler creates a new item handler
func NewItemHandler(items interfaces.ItemStorage, logger arbor.ILogger) *ItemHandler {
	return &ItemHandler{
		items:  items,
		logger: logger,
	}
}

// ListItemsHandler returns buffered completed items
// GET /api/items?since=<RFC3339>&limit=N
func (h *ItemHandler) ListItemsHandler(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		since = parsed
	}
	limit := GetIntParam(r, "limit", 0)

	items, err := h.items.ListItems(since, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list items")
		WriteError(w, http.StatusInternalServerError, "Failed to list items")
		return
	}

	total, err := h.items.CountItems()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count buffered items")
		total = len(items)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
		"total": total,
	})
}

// DeleteItemsHandler removes consumed items from the buffer
// DELETE /api/items?ids=a,b,c deletes the named items; without ids the
// whole buffer is cleared.
func (h *ItemHandler) DeleteItemsHandler(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		if err := h.items.ClearAll(); err != nil {
			h.logger.Error().Err(err).Msg("Failed to clear item buffer")
			WriteError(w, http.StatusInternalServerError, "Failed to clear items")
			return
		}
		WriteSuccess(w, "All buffered items cleared")
		return
	}

	var ids []string
	for _, id := range strings.Split(idsParam, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) == 0 {
		WriteError(w, http.StatusBadRequest, "ids must name at least one item")
		return
	}

	if err := h.items.DeleteItems(ids); err != nil {
		h.logger.Error().Err(err).Msg("Failed to delete items")
		WriteError(w, http.StatusInternalServerError, "Failed to delete items")
		return
	}

	h.logger.Info().
		Int("deleted", len(ids)).
		Msg("Consumed items deleted from buffer")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"deleted": len(ids),
	})
}
