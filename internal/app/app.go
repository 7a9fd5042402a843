package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/handlers"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/services/classifier"
	"github.com/ternarybob/harvester/internal/services/collector"
	"github.com/ternarybob/harvester/internal/services/contentfilter"
	"github.com/ternarybob/harvester/internal/services/events"
	"github.com/ternarybob/harvester/internal/services/monitor"
	"github.com/ternarybob/harvester/internal/services/orchestrator"
	"github.com/ternarybob/harvester/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService

	// Pipeline services
	ClassifierService   *classifier.Service
	FilterService       *contentfilter.Service
	Engine              *collector.Service
	MonitorService      *monitor.Service
	OrchestratorService *orchestrator.Service

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	TaskHandler   *handlers.TaskHandler
	ItemHandler   *handlers.ItemHandler
	StatusHandler *handlers.StatusHandler
	WSHandler     *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Event service and push transport come first so every later service
	// can publish from its constructor onward.
	app.EventService = events.NewService(app.Logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, app.Logger, &app.Config.WebSocket)

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	logger.Info().
		Str("extractor", app.Engine.ExtractorName()).
		Bool("content_filter", cfg.Filter.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the storage layer (Badger)
func (a *App) initStorage() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.StorageManager = manager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes the pipeline services in dependency order:
// classifier and filter feed the engine, the monitor aggregates the
// engine's events, and the orchestrator drives all of them.
func (a *App) initServices() error {
	a.ClassifierService = classifier.NewService(a.Logger)
	a.FilterService = contentfilter.NewService(a.Logger, a.Config)

	// The extractor is an explicit configuration choice; there is no
	// silent fallback between the real and the mock implementation.
	var extractor interfaces.Extractor
	switch a.Config.Collector.Extractor {
	case "mock":
		extractor = collector.NewMockExtractor()
	default:
		extractor = collector.NewGoqueryExtractor(a.Logger)
	}
	a.Logger.Info().
		Str("extractor", extractor.Name()).
		Msg("Extractor selected")

	a.Engine = collector.NewService(
		a.Logger,
		a.Config,
		extractor,
		a.FilterService,
		a.ClassifierService,
		a.EventService,
	)

	monitorService, err := monitor.NewService(a.Logger, a.Config, a.EventService)
	if err != nil {
		return fmt.Errorf("failed to initialize monitor: %w", err)
	}
	a.MonitorService = monitorService
	a.WSHandler.SetStatsSource(monitorService)

	if err := monitorService.StartCleanupScheduler(); err != nil {
		return fmt.Errorf("failed to start cleanup scheduler: %w", err)
	}

	orchestratorService, err := orchestrator.NewService(
		a.Logger,
		a.Config,
		a.Engine,
		monitorService,
		a.StorageManager,
		a.EventService,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}
	a.OrchestratorService = orchestratorService

	// Clear anything that aged out while the process was down.
	if evicted, err := orchestratorService.EvictStaleTasks(); err != nil {
		a.Logger.Warn().Err(err).Msg("Startup task eviction failed")
	} else if evicted > 0 {
		a.Logger.Info().
			Int("evicted", evicted).
			Msg("Evicted stale tasks at startup")
	}

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.TaskHandler = handlers.NewTaskHandler(
		a.OrchestratorService,
		a.ClassifierService,
		a.MonitorService,
		a.Logger,
	)
	a.ItemHandler = handlers.NewItemHandler(a.StorageManager.ItemStorage(), a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StorageManager, a.MonitorService, a.Logger)

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	// Drain running tasks so in-flight items finish their handoff.
	if a.OrchestratorService != nil {
		a.Logger.Info().Msg("Waiting for running tasks to finish")
		a.OrchestratorService.Wait()
	}

	if a.MonitorService != nil {
		a.MonitorService.Stop()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
