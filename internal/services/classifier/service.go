package classifier

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

// matchConfidence is the fixed confidence assigned when a platform pattern
// matches. Classification is pattern-based, not probabilistic, so the value
// only distinguishes "recognized" from "unrecognized".
const matchConfidence = 0.95

// Service classifies raw URLs into typed, validated records carrying the
// source platform and collection intent.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new URL classifier service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// Classify parses a raw URL into a ClassifiedURL. The platform is determined
// by the ordered pattern table (first match wins). URLs matching no platform
// come back with Valid=false and confidence 0; callers must exclude those
// before task creation.
func (s *Service) Classify(rawURL string) models.ClassifiedURL {
	trimmed := strings.TrimSpace(rawURL)
	lowered := strings.ToLower(trimmed)

	for _, pattern := range platformPatterns {
		if !matchesAny(lowered, pattern.hostMarkers) {
			continue
		}
		return s.classifyForPlatform(trimmed, lowered, pattern)
	}

	s.logger.Debug().
		Str("url", trimmed).
		Msg("URL matched no known platform")

	return models.ClassifiedURL{
		ID:            common.NewURLID(),
		OriginalURL:   trimmed,
		NormalizedURL: trimmed,
		Intent:        models.IntentProduct,
		Confidence:    0,
		Valid:         false,
	}
}

// ClassifyAll classifies a list of raw URLs, preserving order. Invalid
// entries are included in the result; callers filter them out.
func (s *Service) ClassifyAll(rawURLs []string) []models.ClassifiedURL {
	classified := make([]models.ClassifiedURL, 0, len(rawURLs))
	for _, rawURL := range rawURLs {
		classified = append(classified, s.Classify(rawURL))
	}
	return classified
}

func (s *Service) classifyForPlatform(original, lowered string, pattern platformPattern) models.ClassifiedURL {
	result := models.ClassifiedURL{
		OriginalURL: original,
		Platform:    pattern.platform,
		Confidence:  matchConfidence,
		Valid:       true,
	}

	if match := pattern.itemID.FindStringSubmatch(lowered); match != nil {
		// Item pages carry the platform identifier in the URL itself;
		// normalize to the canonical item URL for deduplication.
		result.ID = fmt.Sprintf("%s_%s", pattern.platform, match[1])
		result.NormalizedURL = fmt.Sprintf(pattern.itemURL, match[1])
		result.Intent = models.IntentProduct

		s.logger.Debug().
			Str("url", original).
			Str("platform", string(pattern.platform)).
			Str("item_id", match[1]).
			Msg("Classified product URL")

		return result
	}

	result.ID = common.NewURLID()
	result.NormalizedURL = original

	if matchesAny(lowered, pattern.shopMarkers) {
		result.Intent = models.IntentShop
	} else {
		result.Intent = models.IntentProduct
	}

	s.logger.Debug().
		Str("url", original).
		Str("platform", string(pattern.platform)).
		Str("intent", string(result.Intent)).
		Msg("Classified URL without item identifier")

	return result
}

func matchesAny(lowered string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
