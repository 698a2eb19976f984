package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeSessionStarted  ActivityType = "session_started"
	TypeSessionSwitched ActivityType = "session_switched"
	TypeSessionDeleted  ActivityType = "session_deleted"
	TypeSessionReset    ActivityType = "session_reset"
	TypeSectionEdited   ActivityType = "section_edited"
	TypeSectionSynced   ActivityType = "section_synced"
	TypeSectionFailed   ActivityType = "section_failed"
	TypeDraftPersisted  ActivityType = "draft_persisted"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	OwnerID      string       `json:"owner_id"`
	SessionID    string       `json:"session_id"`
	Section      *string      `json:"section,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	SessionID    string
	Section      *string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
