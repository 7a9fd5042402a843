package collector

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/harvester/internal/models"
)

// discoverProductLinks scans a shop/listing page for product URLs using the
// platform's link selectors, deduplicating and stopping at maxItems.
func (s *Service) discoverProductLinks(html, shopURL string, platform models.Platform, maxItems int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("shop page parse failed: %w", err)
	}

	base, _ := url.Parse(shopURL)
	selectors := configFor(platform).selectors.shopLinks

	seen := make(map[string]bool)
	var links []string

	for _, selector := range selectors {
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, ok := sel.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return true
			}

			resolved := resolveURL(base, strings.TrimSpace(href))
			if resolved == "" || seen[resolved] {
				return true
			}
			seen[resolved] = true
			links = append(links, resolved)

			return len(links) < maxItems
		})
		if len(links) >= maxItems {
			break
		}
	}

	s.logger.Info().
		Str("shop_url", shopURL).
		Str("platform", string(platform)).
		Int("discovered", len(links)).
		Int("max_items", maxItems).
		Msg("Discovered product links")

	return links, nil
}
