package models

// FilterCategory is a class of disallowed tokens the content filter scans for.
type FilterCategory string

const (
	FilterCategoryPlatform FilterCategory = "platform" // marketplace/brand names
	FilterCategoryRegion   FilterCategory = "region"   // geographic references
	FilterCategoryShipping FilterCategory = "shipping" // logistics terms
	FilterCategoryKeyword  FilterCategory = "keyword"  // custom terms from task settings
	FilterCategoryLength   FilterCategory = "length"   // content length caps
)

// FilterAction is what the filter did to a matched token.
type FilterAction string

const (
	FilterActionReplaced FilterAction = "replaced"
	FilterActionRemoved  FilterAction = "removed"
	FilterActionFlagged  FilterAction = "flagged"
	FilterActionRejected FilterAction = "rejected"
)

// FilterResult is the audit record of one content transformation.
type FilterResult struct {
	Type          FilterCategory `json:"type"`
	Field         string         `json:"field"`
	OriginalValue string         `json:"original_value"`
	FilteredValue string         `json:"filtered_value,omitempty"`
	Action        FilterAction   `json:"action"`
	Reason        string         `json:"reason,omitempty"`
}
