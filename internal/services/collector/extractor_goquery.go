package collector

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/models"
)

// GoqueryExtractor parses page HTML with the platform's selector table.
// For each field the ordered candidates are tried until one yields a
// non-empty value.
type GoqueryExtractor struct {
	logger arbor.ILogger
}

// NewGoqueryExtractor creates the selector-based extractor
func NewGoqueryExtractor(logger arbor.ILogger) *GoqueryExtractor {
	return &GoqueryExtractor{logger: logger}
}

// Name identifies the extractor in logs and startup output
func (e *GoqueryExtractor) Name() string {
	return "goquery"
}

// Extract parses a RawPayload out of the page HTML. Parse failures come
// back as an ExtractionError; missing fields are left empty for the
// validation stage to judge.
func (e *GoqueryExtractor) Extract(html string, platform models.Platform, pageURL string) (*models.RawPayload, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &models.ExtractionError{URL: pageURL, Reason: "html parse failed: " + err.Error()}
	}

	selectors := configFor(platform).selectors

	payload := &models.RawPayload{
		Title:          firstText(doc, selectors.title),
		Price:          firstText(doc, selectors.price),
		OriginalPrice:  firstText(doc, selectors.originalPrice),
		Images:         collectImages(doc, selectors.images, pageURL),
		Description:    firstHTML(doc, selectors.description),
		ShopName:       firstText(doc, selectors.shopName),
		Sales:          firstText(doc, selectors.sales),
		Rating:         firstText(doc, selectors.rating),
		Specifications: collectSpecs(doc, selectors.specRows),
	}

	e.logger.Debug().
		Str("url", pageURL).
		Str("platform", string(platform)).
		Str("title", payload.Title).
		Int("images", len(payload.Images)).
		Msg("Extracted payload")

	return payload, nil
}

// firstText returns the first candidate's trimmed text. Meta selectors read
// the content attribute instead.
func firstText(doc *goquery.Document, candidates []string) string {
	for _, selector := range candidates {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if strings.HasPrefix(selector, "meta") {
			if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
				return strings.TrimSpace(content)
			}
			continue
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstHTML returns the first candidate's inner HTML; downstream filtering
// strips the markup.
func firstHTML(doc *goquery.Document, candidates []string) string {
	for _, selector := range candidates {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if html, err := sel.Html(); err == nil && strings.TrimSpace(html) != "" {
			return strings.TrimSpace(html)
		}
	}
	return ""
}

// collectImages gathers image URLs from the first candidate selector that
// yields any, resolving relative and protocol-relative references.
func collectImages(doc *goquery.Document, candidates []string, pageURL string) []string {
	base, _ := url.Parse(pageURL)

	for _, selector := range candidates {
		var images []string
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			src, ok := sel.Attr("src")
			if !ok || strings.TrimSpace(src) == "" {
				src, ok = sel.Attr("data-src")
			}
			if !ok || strings.TrimSpace(src) == "" {
				return
			}
			if resolved := resolveURL(base, strings.TrimSpace(src)); resolved != "" {
				images = append(images, resolved)
			}
		})
		if len(images) > 0 {
			return images
		}
	}
	return nil
}

// collectSpecs parses specification rows of the form "key: value" or
// dt/dd pairs from the first candidate selector that yields any.
func collectSpecs(doc *goquery.Document, candidates []string) map[string]string {
	for _, selector := range candidates {
		specs := make(map[string]string)
		doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
			if dt := row.Find("dt").First(); dt.Length() > 0 {
				key := strings.TrimSpace(dt.Text())
				value := strings.TrimSpace(row.Find("dd").First().Text())
				if key != "" && value != "" {
					specs[key] = value
				}
				return
			}

			text := strings.TrimSpace(row.Text())
			for _, sep := range []string{"：", ":"} {
				if idx := strings.Index(text, sep); idx > 0 {
					key := strings.TrimSpace(text[:idx])
					value := strings.TrimSpace(text[idx+len(sep):])
					if key != "" && value != "" {
						specs[key] = value
					}
					return
				}
			}
		})
		if len(specs) > 0 {
			return specs
		}
	}
	return nil
}

func resolveURL(base *url.URL, href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	return parsed.String()
}
