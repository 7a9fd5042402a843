package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - classification
	mux.HandleFunc("/api/classify", s.app.TaskHandler.ClassifyHandler)

	// API routes - tasks
	mux.HandleFunc("/api/tasks", s.handleTasksRoute)
	mux.HandleFunc("/api/tasks/", s.handleTaskRoutes) // Handles /api/tasks/{id} and subpaths

	// API routes - completed items (external catalog handoff)
	mux.HandleFunc("/api/items", s.handleItemsRoute)

	// API routes - system
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler) // Graceful shutdown endpoint (dev mode)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleTasksRoute routes /api/tasks requests (list and create)
func (s *Server) handleTasksRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.TaskHandler.ListTasksHandler(w, r)
	case http.MethodPost:
		s.app.TaskHandler.CreateTasksHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskRoutes routes /api/tasks/{id} requests
func (s *Server) handleTaskRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// GET /api/tasks/{id}/stats
	if r.Method == http.MethodGet && strings.HasSuffix(path, "/stats") {
		s.app.TaskHandler.GetTaskStatsHandler(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.TaskHandler.GetTaskHandler(w, r)
	case http.MethodDelete:
		s.app.TaskHandler.DeleteTaskHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleItemsRoute routes /api/items requests (list and delete)
func (s *Server) handleItemsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.ItemHandler.ListItemsHandler(w, r)
	case http.MethodDelete:
		s.app.ItemHandler.DeleteItemsHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
