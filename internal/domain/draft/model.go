package draft

import "time"

// Status is the sync state of a section record.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusSaved  Status = "saved"
	StatusSynced Status = "synced"
	StatusError  Status = "error"
)

// Kind identifies one of the fixed listing sections.
type Kind string

const (
	KindHeadInfo  Kind = "head_info"
	KindLocation  Kind = "location"
	KindPrice     Kind = "price"
	KindAmenities Kind = "amenities"
	KindRules     Kind = "rules"
	KindFiles     Kind = "files"
)

// Kinds lists every section in upload order. Head info comes first because
// it yields the remote id the rest depend on.
var Kinds = []Kind{KindHeadInfo, KindLocation, KindPrice, KindAmenities, KindRules, KindFiles}

// DependentKinds are the sections that require an anchored session.
var DependentKinds = Kinds[1:]

// ParseKind validates a section kind string.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

// Section is one editable slice of a listing with its own sync status.
type Section struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Data        Payload   `json:"data,omitempty"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"lastUpdated"`
	Error       string    `json:"error,omitempty"`
}

// Session aggregates the sections of one listing being authored.
type Session struct {
	ID                string    `json:"id"`
	Anchor            Anchor    `json:"-"`
	HeadInfo          *Section  `json:"headInfo"`
	Location          *Section  `json:"location"`
	Price             *Section  `json:"price"`
	Amenities         *Section  `json:"amenities"`
	Rules             *Section  `json:"rules"`
	Files             *Section  `json:"files"`
	HasUnsavedChanges bool      `json:"hasUnsavedChanges"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Summary is the listing view of a registered session.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Progress  float64   `json:"progress"`
	RemoteID  string    `json:"remoteId,omitempty"`
}
