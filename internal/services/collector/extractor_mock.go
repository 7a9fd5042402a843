package collector

import (
	"fmt"
	"hash/fnv"

	"github.com/ternarybob/harvester/internal/models"
)

// MockExtractor fabricates a deterministic payload from the page URL. It is
// a development/test mode selected explicitly by configuration
// (collector.extractor = "mock") and announced at startup; it is never a
// silent fallback for a failed real extraction.
type MockExtractor struct{}

// NewMockExtractor creates the deterministic mock extractor
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// Name identifies the extractor in logs and startup output
func (e *MockExtractor) Name() string {
	return "mock"
}

// Extract fabricates a payload seeded from the URL, so the same URL always
// yields the same item.
func (e *MockExtractor) Extract(_ string, platform models.Platform, pageURL string) (*models.RawPayload, error) {
	h := fnv.New32a()
	h.Write([]byte(pageURL))
	seed := h.Sum32()

	return &models.RawPayload{
		Title:         fmt.Sprintf("Sample Product %06d", seed%1000000),
		Price:         fmt.Sprintf("%d.%02d", 10+seed%990, seed%100),
		OriginalPrice: fmt.Sprintf("%d.%02d", 20+seed%1980, seed%100),
		Images: []string{
			fmt.Sprintf("https://img.example.com/products/%08x_main.jpg", seed),
			fmt.Sprintf("https://img.example.com/products/%08x_alt.jpg", seed),
		},
		Description: fmt.Sprintf("Deterministic sample description for product %06d sourced from %s.", seed%1000000, platform),
		ShopName:    fmt.Sprintf("Sample Shop %03d", seed%1000),
		Sales:       fmt.Sprintf("%d", seed%10000),
		Rating:      "4.8",
		Specifications: map[string]string{
			"颜色": "蓝色",
			"尺码": "M",
		},
	}, nil
}
