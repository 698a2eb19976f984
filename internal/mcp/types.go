package mcp

import (
	"encoding/json"

	"github.com/rpggio/listingdraft/internal/domain/completeness"
	"github.com/rpggio/listingdraft/internal/domain/draft"
)

type SwitchDraftParams struct {
	ID string `json:"id"`
}

type DeleteDraftParams struct {
	ID string `json:"id"`
}

type SetAmenitiesParams struct {
	Amenities json.RawMessage `json:"amenities"`
}

type SetRulesParams struct {
	Rules json.RawMessage `json:"rules"`
}

type FileUpload struct {
	Name          string `json:"name"`
	ContentType   string `json:"content_type,omitempty"`
	ContentBase64 string `json:"content_base64"`
}

type AddFilesParams struct {
	Files []FileUpload `json:"files"`
}

type RemoveFileParams struct {
	FileID string `json:"file_id"`
}

type UploadSectionParams struct {
	Section string `json:"section"`
}

type GetRecentActivityParams struct {
	SessionID string  `json:"session_id,omitempty"`
	Section   *string `json:"section,omitempty"`
	Type      *string `json:"type,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	Offset    int     `json:"offset,omitempty"`
}

// DraftView is the active draft with its derived state.
type DraftView struct {
	Session      *draft.Session      `json:"session"`
	Title        string              `json:"title"`
	Progress     float64             `json:"progress"`
	Completeness completeness.Report `json:"completeness"`
}

type DeleteDraftResponse struct {
	Deleted string `json:"deleted"`
}

type RemoveFileResponse struct {
	Removed draft.FileHandle `json:"removed"`
	Session *draft.Session   `json:"session"`
}
