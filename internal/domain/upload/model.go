package upload

import (
	"encoding/json"

	"github.com/rpggio/listingdraft/internal/domain/draft"
)

// Result is the outcome of one section upload. Failures are data, not
// errors.
type Result struct {
	Section draft.Kind      `json:"section"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
	// Attempted is false when a local guard stopped the upload before any
	// network call.
	Attempted bool `json:"attempted"`
}

// Report aggregates a full persist attempt.
type Report struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Results []Result `json:"data"`
}
