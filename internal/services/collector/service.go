package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/interfaces"
	"github.com/ternarybob/harvester/internal/models"
	"github.com/ternarybob/harvester/internal/services/classifier"
	"github.com/ternarybob/harvester/internal/services/contentfilter"
)

// ItemResult is the outcome of one per-item pipeline run. Failures are
// terminal for the item only and never abort sibling work.
type ItemResult struct {
	URL     string
	Success bool
	Item    *models.CollectedItem
	Err     error
}

// Service is the collection engine: it runs the per-item
// fetch→extract→validate→filter→assemble pipeline and composes the
// single/batch/shop execution strategies on top of it.
type Service struct {
	logger     arbor.ILogger
	config     *common.Config
	fetcher    *Fetcher
	extractor  interfaces.Extractor
	filter     *contentfilter.Service
	classifier *classifier.Service
	events     interfaces.EventService
}

// NewService creates the collection engine
func NewService(
	logger arbor.ILogger,
	config *common.Config,
	extractor interfaces.Extractor,
	filter *contentfilter.Service,
	classifierService *classifier.Service,
	events interfaces.EventService,
) *Service {
	return &Service{
		logger:     logger,
		config:     config,
		fetcher:    NewFetcher(logger, config),
		extractor:  extractor,
		filter:     filter,
		classifier: classifierService,
		events:     events,
	}
}

// ExtractorName reports which extractor implementation the engine runs.
func (s *Service) ExtractorName() string {
	return s.extractor.Name()
}

// CollectOne runs the full pipeline for one classified URL, emitting a
// progress checkpoint at each stage. Errors are caught at the item level
// and reported in the result, never propagated.
func (s *Service) CollectOne(ctx context.Context, target models.ClassifiedURL, taskID string, settings models.TaskSettings) ItemResult {
	pageURL := target.NormalizedURL
	if pageURL == "" {
		pageURL = target.OriginalURL
	}

	cfg := configFor(target.Platform)
	s.emitProgress(ctx, taskID, pageURL, models.ItemProgressProcessing, 0, "collection started")

	retryCount := settings.RetryCount
	if retryCount <= 0 {
		retryCount = cfg.policy.RetryCount
	}
	timeout := time.Duration(settings.Timeout) * time.Second

	retryPolicy := NewRetryPolicy(retryCount, s.config.Collector.RetryBackoff)
	html, err := retryPolicy.ExecuteWithRetry(ctx, s.logger, func() (string, error) {
		return s.fetcher.Fetch(ctx, pageURL, cfg.policy, timeout)
	})
	if err != nil {
		return s.failItem(ctx, taskID, pageURL, err)
	}
	s.emitProgress(ctx, taskID, pageURL, models.ItemProgressProcessing, 20, "page fetched")

	payload, err := s.extractor.Extract(html, target.Platform, pageURL)
	if err != nil {
		return s.failItem(ctx, taskID, pageURL, err)
	}
	s.emitProgress(ctx, taskID, pageURL, models.ItemProgressProcessing, 40, "payload extracted")

	if err := validatePayload(payload, pageURL); err != nil {
		return s.failItem(ctx, taskID, pageURL, err)
	}
	s.emitProgress(ctx, taskID, pageURL, models.ItemProgressProcessing, 60, "payload validated")

	var filterResults []models.FilterResult
	if settings.ContentFilterEnabled() {
		payload, filterResults = s.filter.FilterProductData(payload, settings.FilterKeywords)

		minLength := settings.MinContentLength
		if minLength == 0 {
			minLength = s.config.Collector.MinContentLength
		}
		maxLength := settings.MaxContentLength
		if maxLength == 0 {
			maxLength = s.config.Collector.MaxContentLength
		}
		if rejection := s.filter.CheckContentLength(payload.Description, minLength, maxLength); rejection != nil {
			filterResults = append(filterResults, *rejection)
			return s.failItem(ctx, taskID, pageURL, &models.FilterRejection{URL: pageURL, Reason: rejection.Reason})
		}
	}
	s.emitProgress(ctx, taskID, pageURL, models.ItemProgressProcessing, 80, "content filtered")

	now := time.Now()
	item := &models.CollectedItem{
		ID:             common.NewItemID(),
		TaskID:         taskID,
		SourcePlatform: target.Platform,
		OriginalURL:    target.OriginalURL,
		Title:          payload.Title,
		Price:          payload.Price,
		OriginalPrice:  payload.OriginalPrice,
		Images:         payload.Images,
		Description:    payload.Description,
		ShopName:       payload.ShopName,
		Sales:          payload.Sales,
		Rating:         payload.Rating,
		Specifications: payload.Specifications,
		FilterResults:  filterResults,
		Status:         models.ItemStatusDraft,
		CollectedAt:    now,
		UpdatedAt:      now,
	}
	s.emitProgress(ctx, taskID, pageURL, models.ItemProgressProcessing, 90, "item assembled")

	s.emitProgress(ctx, taskID, pageURL, models.ItemProgressCompleted, 100, "item collected")

	s.logger.Info().
		Str("task_id", taskID).
		Str("url", pageURL).
		Str("item_id", item.ID).
		Msg("Item collected")

	return ItemResult{URL: pageURL, Success: true, Item: item}
}

// CollectBatch partitions targets into chunks of size concurrency and
// processes chunks strictly sequentially. Within a chunk all items run
// concurrently and every outcome is awaited before the next chunk starts.
// The inter-chunk delay throttles load on the source site.
func (s *Service) CollectBatch(ctx context.Context, targets []models.ClassifiedURL, taskID string, settings models.TaskSettings) []ItemResult {
	concurrency := settings.Concurrency
	if concurrency <= 0 {
		concurrency = s.config.Collector.Concurrency
	}
	if concurrency < 1 {
		concurrency = 1
	}

	delay := time.Duration(settings.Delay) * time.Millisecond
	if settings.Delay == 0 {
		delay = s.config.Collector.ChunkDelay
	}

	results := make([]ItemResult, len(targets))

	for chunkStart := 0; chunkStart < len(targets); chunkStart += concurrency {
		if chunkStart > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				for i := chunkStart; i < len(targets); i++ {
					results[i] = ItemResult{URL: targets[i].NormalizedURL, Err: ctx.Err()}
				}
				return results
			case <-time.After(delay):
			}
		}

		chunkEnd := chunkStart + concurrency
		if chunkEnd > len(targets) {
			chunkEnd = len(targets)
		}

		s.logger.Debug().
			Str("task_id", taskID).
			Int("chunk_start", chunkStart).
			Int("chunk_size", chunkEnd-chunkStart).
			Msg("Processing batch chunk")

		var wg sync.WaitGroup
		for i := chunkStart; i < chunkEnd; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = s.CollectOne(ctx, targets[idx], taskID, settings)
			}(i)
		}
		wg.Wait()
	}

	return results
}

// CollectShop discovers up to maxItems product URLs from a shop page,
// reclassifies them as product targets, and delegates to the batch strategy
// with the reduced shop concurrency. A discovery failure is an
// orchestration-level error: no item has started yet.
func (s *Service) CollectShop(ctx context.Context, shop models.ClassifiedURL, taskID string, maxItems int, settings models.TaskSettings) ([]ItemResult, error) {
	targets, err := s.DiscoverShopTargets(ctx, shop, maxItems, settings)
	if err != nil {
		return nil, err
	}
	return s.CollectBatch(ctx, targets, taskID, s.ShopSettings(settings)), nil
}

// DiscoverShopTargets fetches a shop/listing page and returns up to
// maxItems reclassified product targets. Split from CollectShop so the
// orchestrator can fix the task total before any item starts.
func (s *Service) DiscoverShopTargets(ctx context.Context, shop models.ClassifiedURL, maxItems int, settings models.TaskSettings) ([]models.ClassifiedURL, error) {
	if maxItems <= 0 {
		maxItems = s.config.Collector.MaxItems
	}

	shopURL := shop.NormalizedURL
	if shopURL == "" {
		shopURL = shop.OriginalURL
	}
	cfg := configFor(shop.Platform)

	retryPolicy := NewRetryPolicy(cfg.policy.RetryCount, s.config.Collector.RetryBackoff)
	html, err := retryPolicy.ExecuteWithRetry(ctx, s.logger, func() (string, error) {
		return s.fetcher.Fetch(ctx, shopURL, cfg.policy, time.Duration(settings.Timeout)*time.Second)
	})
	if err != nil {
		return nil, fmt.Errorf("shop page fetch failed: %w", err)
	}

	links, err := s.discoverProductLinks(html, shopURL, shop.Platform, maxItems)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("no product links discovered on %s", shopURL)
	}

	targets := make([]models.ClassifiedURL, 0, len(links))
	for _, link := range links {
		classified := s.classifier.Classify(link)
		if !classified.Valid {
			s.logger.Warn().
				Str("url", link).
				Msg("Discovered link failed classification, skipping")
			continue
		}
		classified.Intent = models.IntentProduct
		targets = append(targets, classified)
	}

	return targets, nil
}

// ShopSettings lowers the batch concurrency for shop targets, which are
// assumed more rate-sensitive than plain batches.
func (s *Service) ShopSettings(settings models.TaskSettings) models.TaskSettings {
	settings.Concurrency = s.config.Collector.ShopConcurrency
	return settings
}

// failItem emits the failed checkpoint and wraps the error into the result.
func (s *Service) failItem(ctx context.Context, taskID, pageURL string, err error) ItemResult {
	s.logger.Warn().
		Str("task_id", taskID).
		Str("url", pageURL).
		Err(err).
		Msg("Item collection failed")

	s.emitProgress(ctx, taskID, pageURL, models.ItemProgressFailed, 100, err.Error())

	return ItemResult{URL: pageURL, Success: false, Err: err}
}

// emitProgress publishes one checkpoint synchronously so per-item event
// order is preserved for the monitor.
func (s *Service) emitProgress(ctx context.Context, taskID, itemURL string, status models.ItemProgressStatus, progress int, message string) {
	if s.events == nil {
		return
	}

	event := interfaces.Event{
		Type: interfaces.EventProductProgress,
		Payload: models.ProgressEvent{
			TaskID:    taskID,
			ItemURL:   itemURL,
			Status:    status,
			Progress:  progress,
			Message:   message,
			Timestamp: time.Now(),
		},
	}
	if err := s.events.PublishSync(ctx, event); err != nil {
		s.logger.Warn().
			Err(err).
			Str("task_id", taskID).
			Msg("Progress event delivery failed")
	}
}

// validatePayload enforces the required-field contract: title, price and at
// least one image.
func validatePayload(payload *models.RawPayload, pageURL string) error {
	if payload == nil {
		return &models.ExtractionError{URL: pageURL, Reason: "extractor returned no payload"}
	}
	if payload.Title == "" {
		return &models.ExtractionError{URL: pageURL, Reason: "required field missing: title"}
	}
	if payload.Price == "" {
		return &models.ExtractionError{URL: pageURL, Reason: "required field missing: price"}
	}
	if len(payload.Images) == 0 {
		return &models.ExtractionError{URL: pageURL, Reason: "required field missing: images"}
	}
	return nil
}
