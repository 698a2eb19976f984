package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/listingapi"
	"github.com/rpggio/listingdraft/internal/staging"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, registry.ErrSessionNotFound):
		return &APIError{Code: "DRAFT_NOT_FOUND", Message: "draft not found", RecoveryHint: "Call list_drafts for valid ids"}
	case errors.Is(err, draft.ErrFileNotFound):
		return &APIError{Code: "FILE_NOT_FOUND", Message: "file not found", RecoveryHint: "Call get_active_draft for file ids"}
	case errors.Is(err, draft.ErrUnknownKind):
		return &APIError{Code: "UNKNOWN_SECTION", Message: "unknown section", RecoveryHint: "Use head_info, location, price, amenities, rules or files"}
	case errors.Is(err, draft.ErrInvalidPayload):
		return &APIError{Code: "INVALID_SECTION_DATA", Message: err.Error(), RecoveryHint: "Fix the section fields and retry"}
	case errors.Is(err, registry.ErrInvalidInput), errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, staging.ErrTooLarge):
		return &APIError{Code: "FILE_TOO_LARGE", Message: "file exceeds size limit", RecoveryHint: "Upload a smaller file"}
	case errors.Is(err, listingapi.ErrUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: "listing api rejected the token", RecoveryHint: "Sign in again"}
	default:
		return nil
	}
}
