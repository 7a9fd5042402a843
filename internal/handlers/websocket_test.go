package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/services/events"
)

type fakeStatsSource struct {
	stats []models.TaskStats
}

func (f *fakeStatsSource) Snapshot() []models.TaskStats {
	return f.stats
}

func dialTestClient(t *testing.T, handler *WebSocketHandler) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocket_SnapshotReplayOnConnect(t *testing.T) {
	logger := common.GetLogger()
	eventService := events.NewService(logger)
	handler := NewWebSocketHandler(eventService, logger, &common.WebSocketConfig{})
	handler.SetStatsSource(&fakeStatsSource{stats: []models.TaskStats{
		{TaskID: "task_a", TotalItems: 5, Completed: 2},
		{TaskID: "task_b", TotalItems: 3, Completed: 3},
	}})

	conn := dialTestClient(t, handler)

	hello := readMessage(t, conn)
	assert.Equal(t, "hello", hello.Type)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		msg := readMessage(t, conn)
		require.Equal(t, "task_stats", msg.Type)
		payload := msg.Payload.(map[string]interface{})
		seen[payload["task_id"].(string)] = true
	}
	assert.True(t, seen["task_a"])
	assert.True(t, seen["task_b"])
}

func TestWebSocket_BroadcastsProgressEvents(t *testing.T) {
	logger := common.GetLogger()
	eventService := events.NewService(logger)
	handler := NewWebSocketHandler(eventService, logger, &common.WebSocketConfig{})

	conn := dialTestClient(t, handler)
	readMessage(t, conn) // hello

	ctx := context.Background()
	require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventTaskStats,
		Payload: models.TaskStats{TaskID: "task_1", TotalItems: 4, Completed: 1},
	}))
	require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventTaskCleanup,
		Payload: "task_old",
	}))

	stats := readMessage(t, conn)
	assert.Equal(t, "task_stats", stats.Type)

	cleanup := readMessage(t, conn)
	require.Equal(t, "task_cleanup", cleanup.Type)
	payload := cleanup.Payload.(map[string]interface{})
	assert.Equal(t, "task_old", payload["task_id"])
}

func TestWebSocket_ProductProgressThrottled(t *testing.T) {
	logger := common.GetLogger()
	eventService := events.NewService(logger)
	handler := NewWebSocketHandler(eventService, logger, &common.WebSocketConfig{
		ProgressThrottle: "1h",
	})

	conn := dialTestClient(t, handler)
	readMessage(t, conn) // hello

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{
			Type: interfaces.EventProductProgress,
			Payload: models.ProgressEvent{
				TaskID:   "task_1",
				ItemURL:  "https://item.taobao.com/item.htm?id=1",
				Status:   models.ItemProgressProcessing,
				Progress: 20 * (i + 1),
			},
		}))
	}
	// Stats events bypass the throttle, so this marks the end of the stream.
	require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{
		Type:    interfaces.EventTaskStats,
		Payload: models.TaskStats{TaskID: "task_1"},
	}))

	first := readMessage(t, conn)
	assert.Equal(t, "product_progress", first.Type)

	next := readMessage(t, conn)
	assert.Equal(t, "task_stats", next.Type, "only the first progress event inside the window is delivered")
}
