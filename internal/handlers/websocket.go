package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the tagged envelope for every push message.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketHandler is the progress push channel. It subscribes to the
// event service and fans task_stats, product_progress, and task_cleanup
// messages out to every connected observer. On connect the current
// snapshot of all known tasks is replayed before live updates stream.
type WebSocketHandler struct {
	logger            arbor.ILogger
	clients           map[*websocket.Conn]bool
	clientMutex       map[*websocket.Conn]*sync.Mutex
	mu                sync.RWMutex
	events            interfaces.EventService
	statsSource       StatsSource
	progressThrottler *rate.Limiter // product_progress only; stats and cleanup never throttle
	serverInstanceID  string        // Unique per startup - clients clear local state on change
}

// NewWebSocketHandler creates the push transport and subscribes it to
// progress events.
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		events:           eventService,
		serverInstanceID: uuid.New().String(),
	}

	if config != nil && config.ProgressThrottle != "" {
		if interval, err := time.ParseDuration(config.ProgressThrottle); err == nil && interval > 0 {
			h.progressThrottler = rate.NewLimiter(rate.Every(interval), 1)
			logger.Debug().
				Str("interval", config.ProgressThrottle).
				Msg("Throttler initialized for product_progress events")
		} else {
			logger.Warn().
				Str("interval", config.ProgressThrottle).
				Msg("Failed to parse progress throttle interval - throttler disabled")
		}
	}

	if eventService != nil {
		h.subscribeAll()
	}

	return h
}

// SetStatsSource wires the monitor snapshot used for replay on connect.
func (h *WebSocketHandler) SetStatsSource(source StatsSource) {
	h.statsSource = source
}

func (h *WebSocketHandler) subscribeAll() {
	h.events.Subscribe(interfaces.EventTaskStats, h.handleTaskStats)
	h.events.Subscribe(interfaces.EventProductProgress, h.handleProductProgress)
	h.events.Subscribe(interfaces.EventTaskCleanup, h.handleTaskCleanup)

	h.logger.Info().Msg("WebSocket handler subscribed to progress events (task_stats, product_progress, task_cleanup)")
}

func (h *WebSocketHandler) handleTaskStats(_ context.Context, event interfaces.Event) error {
	stats, ok := event.Payload.(models.TaskStats)
	if !ok {
		h.logger.Warn().Msg("Invalid task stats event payload type")
		return nil
	}
	h.broadcast(WSMessage{Type: "task_stats", Payload: stats})
	return nil
}

func (h *WebSocketHandler) handleProductProgress(_ context.Context, event interfaces.Event) error {
	if h.progressThrottler != nil && !h.progressThrottler.Allow() {
		return nil
	}

	progress, ok := event.Payload.(models.ProgressEvent)
	if !ok {
		h.logger.Warn().Msg("Invalid progress event payload type")
		return nil
	}
	h.broadcast(WSMessage{Type: "product_progress", Payload: progress})
	return nil
}

func (h *WebSocketHandler) handleTaskCleanup(_ context.Context, event interfaces.Event) error {
	taskID, ok := event.Payload.(string)
	if !ok {
		h.logger.Warn().Msg("Invalid cleanup event payload type")
		return nil
	}
	h.broadcast(WSMessage{Type: "task_cleanup", Payload: map[string]string{"task_id": taskID}})
	return nil
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", clientCount)

	// Replay before live updates so late joiners see every known task.
	h.sendHello(conn)
	h.replaySnapshot(conn)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	// Read messages from client (keep connection alive)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// sendHello identifies the server instance so reconnecting clients can
// detect a restart and drop stale local state.
func (h *WebSocketHandler) sendHello(conn *websocket.Conn) {
	h.sendToClient(conn, WSMessage{
		Type: "hello",
		Payload: map[string]string{
			"server_instance_id": h.serverInstanceID,
			"version":            common.GetVersion(),
		},
	})
}

// replaySnapshot sends the current aggregate of every known task to one
// newly connected client.
func (h *WebSocketHandler) replaySnapshot(conn *websocket.Conn) {
	if h.statsSource == nil {
		return
	}
	for _, stats := range h.statsSource.Snapshot() {
		h.sendToClient(conn, WSMessage{Type: "task_stats", Payload: stats})
	}
}

// sendToClient writes one message to a single client under its mutex.
func (h *WebSocketHandler) sendToClient(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()

	if mutex == nil {
		return
	}

	mutex.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	mutex.Unlock()

	if err != nil {
		h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
	}
}

// broadcast sends one message to all connected clients.
func (h *WebSocketHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
		}
	}
}
