package models

// Platform identifies a supported source marketplace. The set is closed:
// selector configs and HTTP policies are keyed on it at compile time.
type Platform string

const (
	PlatformTaobao    Platform = "taobao"
	PlatformTmall     Platform = "tmall"
	Platform1688      Platform = "1688"
	PlatformPinduoduo Platform = "pinduoduo"
	PlatformJD        Platform = "jd"
)

// AllPlatforms lists every supported platform in match order.
// Order matters: classification takes the first pattern match.
var AllPlatforms = []Platform{
	PlatformTmall, // tmall before taobao: tmall item URLs carry taobao redirect params
	PlatformTaobao,
	Platform1688,
	PlatformPinduoduo,
	PlatformJD,
}

// Intent classifies what a URL points at.
type Intent string

const (
	IntentProduct Intent = "product" // single item page
	IntentShop    Intent = "shop"    // shop/listing page, requires discovery
	IntentBatch   Intent = "batch"   // explicit list of item URLs
)

// ClassifiedURL is the typed, validated form of a raw source URL.
// Immutable once created by the classifier.
type ClassifiedURL struct {
	ID            string   `json:"id"`
	OriginalURL   string   `json:"original_url"`
	NormalizedURL string   `json:"normalized_url"`
	Platform      Platform `json:"platform,omitempty"`
	Intent        Intent   `json:"intent"`
	Confidence    float64  `json:"confidence"`
	Valid         bool     `json:"valid"`
}
