package models

import "time"

// RawPayload is the unnormalized extraction result for one product page,
// before the content filter runs.
type RawPayload struct {
	Title          string            `json:"title"`
	Price          string            `json:"price"`
	OriginalPrice  string            `json:"original_price,omitempty"`
	Images         []string          `json:"images"`
	Description    string            `json:"description"`
	ShopName       string            `json:"shop_name"`
	Sales          string            `json:"sales,omitempty"`
	Rating         string            `json:"rating,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// ItemStatus is the publication state of a collected item.
type ItemStatus string

const (
	ItemStatusDraft     ItemStatus = "draft"
	ItemStatusPublished ItemStatus = "published"
)

// CollectedItem is the finalized entity produced by a successful per-item
// pipeline run. Ownership transfers to the external store on handoff;
// the consumer deletes items it has durably persisted (at-least-once).
type CollectedItem struct {
	ID             string            `json:"id"`
	TaskID         string            `json:"task_id"`
	SourcePlatform Platform          `json:"source_platform"`
	OriginalURL    string            `json:"original_url"`
	Title          string            `json:"title"`
	Price          string            `json:"price"`
	OriginalPrice  string            `json:"original_price,omitempty"`
	Images         []string          `json:"images"`
	Description    string            `json:"description"`
	ShopName       string            `json:"shop_name"`
	Sales          string            `json:"sales,omitempty"`
	Rating         string            `json:"rating,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	FilterResults  []FilterResult    `json:"filter_results,omitempty"`
	Status         ItemStatus        `json:"status"`
	CollectedAt    time.Time         `json:"collected_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
