package contentfilter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

// maxPasses bounds the substitution loops. Removal can expose a new
// occurrence across the cut boundary, so each token is re-scanned until the
// text reaches a fixed point.
const maxPasses = 10

// titleEllipsis terminates a truncated title.
const titleEllipsis = "…"

// SensitivityReport is the advisory result of a sensitive-content scan.
// It never blocks the pipeline by itself.
type SensitivityReport struct {
	TotalMatches int     `json:"total_matches"`
	Confidence   float64 `json:"confidence"`
}

// Service is the content filter: a pure, deterministic text/data
// transformer. Filtering already-filtered text leaves it unchanged.
type Service struct {
	logger         arbor.ILogger
	converter      *md.Converter
	titleMaxLength int
	extraKeywords  []string
}

// NewService creates a new content filter service
func NewService(logger arbor.ILogger, config *common.Config) *Service {
	titleMax := config.Filter.TitleMaxLength
	if titleMax <= 0 {
		titleMax = 60
	}

	return &Service{
		logger:         logger,
		converter:      md.NewConverter("", true, nil),
		titleMaxLength: titleMax,
		extraKeywords:  config.Filter.ExtraKeywords,
	}
}

// FilterText runs the category keyword tables over the text, then the fixed
// regex pass, then normalizes whitespace. Custom keywords are treated as the
// keyword category and always removed.
func (s *Service) FilterText(text string, categories []models.FilterCategory, custom []string) (string, []models.FilterResult) {
	return s.filterField(text, "text", categories, custom)
}

// FilterTitle filters a product title: platform and region categories only,
// bracket characters stripped, whitespace collapsed, hard length cap with an
// ellipsis (logged as a replaced result).
func (s *Service) FilterTitle(title string, custom []string) (string, []models.FilterResult) {
	filtered, results := s.filterField(title, "title",
		[]models.FilterCategory{models.FilterCategoryPlatform, models.FilterCategoryRegion}, custom)

	filtered = bracketReplacer.Replace(filtered)
	filtered = collapseWhitespace(filtered)

	if utf8.RuneCountInString(filtered) > s.titleMaxLength {
		runes := []rune(filtered)
		capped := strings.TrimSpace(string(runes[:s.titleMaxLength-1])) + titleEllipsis
		results = append(results, models.FilterResult{
			Type:          models.FilterCategoryLength,
			Field:         "title",
			OriginalValue: filtered,
			FilteredValue: capped,
			Action:        models.FilterActionReplaced,
			Reason:        fmt.Sprintf("title exceeds %d characters", s.titleMaxLength),
		})
		filtered = capped
	}

	return filtered, results
}

// FilterDescription filters a product description: HTML stripped first, then
// platform, region and shipping categories, then blank lines collapsed.
func (s *Service) FilterDescription(description string, custom []string) (string, []models.FilterResult) {
	text := s.stripHTML(description)

	filtered, results := s.filterField(text, "description",
		[]models.FilterCategory{
			models.FilterCategoryPlatform,
			models.FilterCategoryRegion,
			models.FilterCategoryShipping,
		}, custom)

	return filtered, results
}

// FilterImageURLs drops any image URL whose host belongs to a disallowed
// platform domain. URLs are never rewritten, only removed, each logged as
// flagged.
func (s *Service) FilterImageURLs(urls []string) ([]string, []models.FilterResult) {
	var kept []string
	var results []models.FilterResult

	for _, rawURL := range urls {
		if rawURL == "" {
			continue
		}
		if domain := disallowedImageDomain(rawURL); domain != "" {
			results = append(results, models.FilterResult{
				Type:          models.FilterCategoryPlatform,
				Field:         "images",
				OriginalValue: rawURL,
				Action:        models.FilterActionFlagged,
				Reason:        fmt.Sprintf("image host contains %s", domain),
			})
			continue
		}
		kept = append(kept, rawURL)
	}

	return kept, results
}

// FilterSpecifications filters each key and value of a specification map
// independently with the region and shipping categories. A pair is dropped
// entirely when either side becomes empty.
func (s *Service) FilterSpecifications(specs map[string]string, custom []string) (map[string]string, []models.FilterResult) {
	if len(specs) == 0 {
		return specs, nil
	}

	categories := []models.FilterCategory{models.FilterCategoryRegion, models.FilterCategoryShipping}
	filtered := make(map[string]string, len(specs))
	var results []models.FilterResult

	for key, value := range specs {
		filteredKey, keyResults := s.filterField(key, "specifications", categories, custom)
		filteredValue, valueResults := s.filterField(value, "specifications", categories, custom)
		results = append(results, keyResults...)
		results = append(results, valueResults...)

		if filteredKey == "" || filteredValue == "" {
			results = append(results, models.FilterResult{
				Type:          models.FilterCategoryKeyword,
				Field:         "specifications",
				OriginalValue: fmt.Sprintf("%s: %s", key, value),
				Action:        models.FilterActionRemoved,
				Reason:        "specification emptied by filtering",
			})
			continue
		}

		filtered[filteredKey] = filteredValue
	}

	return filtered, results
}

// DetectSensitiveContent counts keyword and regex matches across all
// categories without mutating the input. Advisory only.
func (s *Service) DetectSensitiveContent(text string) SensitivityReport {
	total := 0

	for _, category := range []models.FilterCategory{
		models.FilterCategoryPlatform,
		models.FilterCategoryRegion,
		models.FilterCategoryShipping,
	} {
		for _, entry := range categoryKeywords(category) {
			total += strings.Count(text, entry.keyword)
		}
	}
	for _, keyword := range s.extraKeywords {
		total += strings.Count(text, keyword)
	}
	for _, pattern := range piiPatterns {
		total += len(pattern.re.FindAllString(text, -1))
	}

	confidence := float64(total) / 10
	if confidence > 1 {
		confidence = 1
	}

	return SensitivityReport{
		TotalMatches: total,
		Confidence:   confidence,
	}
}

// FilterProductData applies the field filters to a raw payload and returns
// the filtered copy plus every accumulated filter result.
func (s *Service) FilterProductData(payload *models.RawPayload, custom []string) (*models.RawPayload, []models.FilterResult) {
	var results []models.FilterResult

	filtered := *payload

	title, titleResults := s.FilterTitle(payload.Title, custom)
	filtered.Title = title
	results = append(results, titleResults...)

	description, descResults := s.FilterDescription(payload.Description, custom)
	filtered.Description = description
	results = append(results, descResults...)

	images, imageResults := s.FilterImageURLs(payload.Images)
	filtered.Images = images
	results = append(results, imageResults...)

	specs, specResults := s.FilterSpecifications(payload.Specifications, custom)
	filtered.Specifications = specs
	results = append(results, specResults...)

	s.logger.Debug().
		Str("title", filtered.Title).
		Int("filter_results", len(results)).
		Msg("Filtered product payload")

	return &filtered, results
}

// CheckContentLength validates filtered description length against task
// bounds. Out-of-bounds content yields a rejected result; the item is then
// excluded from the successful set, not treated as a hard error.
func (s *Service) CheckContentLength(text string, minLength, maxLength int) *models.FilterResult {
	length := utf8.RuneCountInString(text)

	if minLength > 0 && length < minLength {
		return &models.FilterResult{
			Type:          models.FilterCategoryLength,
			Field:         "description",
			OriginalValue: text,
			Action:        models.FilterActionRejected,
			Reason:        fmt.Sprintf("content length %d below minimum %d", length, minLength),
		}
	}
	if maxLength > 0 && length > maxLength {
		return &models.FilterResult{
			Type:          models.FilterCategoryLength,
			Field:         "description",
			OriginalValue: text,
			Action:        models.FilterActionRejected,
			Reason:        fmt.Sprintf("content length %d above maximum %d", length, maxLength),
		}
	}

	return nil
}

// filterField is the core keyword+regex pass shared by all field filters.
func (s *Service) filterField(text, field string, categories []models.FilterCategory, custom []string) (string, []models.FilterResult) {
	var results []models.FilterResult

	for _, category := range categories {
		for _, entry := range categoryKeywords(category) {
			if !strings.Contains(text, entry.keyword) {
				continue
			}

			text = substituteAll(text, entry.keyword, entry.replacement)

			action := models.FilterActionRemoved
			if entry.replacement != "" {
				action = models.FilterActionReplaced
			}
			results = append(results, models.FilterResult{
				Type:          category,
				Field:         field,
				OriginalValue: entry.keyword,
				FilteredValue: entry.replacement,
				Action:        action,
			})
		}
	}

	for _, keyword := range s.combinedCustomKeywords(custom) {
		if keyword == "" || !strings.Contains(text, keyword) {
			continue
		}
		text = substituteAll(text, keyword, "")
		results = append(results, models.FilterResult{
			Type:          models.FilterCategoryKeyword,
			Field:         field,
			OriginalValue: keyword,
			Action:        models.FilterActionRemoved,
		})
	}

	for _, pattern := range piiPatterns {
		for pass := 0; pass < maxPasses; pass++ {
			matches := pattern.re.FindAllString(text, -1)
			if len(matches) == 0 {
				break
			}
			for _, match := range matches {
				results = append(results, models.FilterResult{
					Type:          pattern.category,
					Field:         field,
					OriginalValue: match,
					Action:        models.FilterActionRemoved,
					Reason:        pattern.name,
				})
			}
			text = pattern.re.ReplaceAllString(text, "")
		}
	}

	return normalizeWhitespace(text), results
}

func (s *Service) combinedCustomKeywords(custom []string) []string {
	if len(s.extraKeywords) == 0 {
		return custom
	}
	combined := make([]string, 0, len(s.extraKeywords)+len(custom))
	combined = append(combined, s.extraKeywords...)
	combined = append(combined, custom...)
	return combined
}

func (s *Service) stripHTML(html string) string {
	if html == "" {
		return ""
	}
	if !strings.Contains(html, "<") {
		return html
	}

	markdown, err := s.converter.ConvertString(html)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Msg("HTML conversion failed, filtering raw text")
		return html
	}
	return markdown
}

// substituteAll replaces every occurrence of keyword, re-scanning because a
// removal can join surrounding characters into a fresh occurrence.
func substituteAll(text, keyword, replacement string) string {
	if strings.Contains(replacement, keyword) {
		return strings.ReplaceAll(text, keyword, replacement)
	}
	for pass := 0; pass < maxPasses && strings.Contains(text, keyword); pass++ {
		text = strings.ReplaceAll(text, keyword, replacement)
	}
	return text
}
