package common

import (
	"github.com/google/uuid"
)

// NewTaskID generates a unique task ID with the "task_" prefix
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// NewItemID generates a unique collected-item ID with the "item_" prefix
func NewItemID() string {
	return "item_" + uuid.New().String()
}

// NewURLID generates an opaque ID for a classified URL whose platform
// identifier could not be extracted from the URL itself.
func NewURLID() string {
	return "url_" + uuid.New().String()
}
