package interfaces

import "github.com/ternarybob/harvester/internal/models"

// Extractor turns a fetched HTML document into a RawPayload using the
// platform's selector configuration. Two implementations exist: the
// goquery-backed extractor and a deterministic mock for dev/test runs.
// The choice is made explicitly by configuration at startup; there is no
// silent runtime fallback between them.
type Extractor interface {
	// Name identifies the implementation ("goquery" or "mock") for logging.
	Name() string
	// Extract parses the document for the given platform. Returns an
	// *models.ExtractionError when required fields cannot be produced.
	Extract(html string, platform models.Platform, pageURL string) (*models.RawPayload, error)
}
