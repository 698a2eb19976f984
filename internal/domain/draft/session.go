package draft

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// UntitledTitle is shown for sessions without head info.
const UntitledTitle = "Untitled Rental"

// Anchor tells whether a session is bound to a remote listing. The zero
// value is unanchored: only head info may be uploaded.
type Anchor struct {
	remoteID string
}

// Unanchored returns an anchor with no remote listing.
func Unanchored() Anchor { return Anchor{} }

// AnchoredTo returns an anchor bound to remoteID. An empty id is unanchored.
func AnchoredTo(remoteID string) Anchor { return Anchor{remoteID: remoteID} }

// RemoteID returns the remote listing id and whether the session is anchored.
func (a Anchor) RemoteID() (string, bool) { return a.remoteID, a.remoteID != "" }

// IsAnchored reports whether dependent sections can be uploaded.
func (a Anchor) IsAnchored() bool { return a.remoteID != "" }

// NewSession creates a session with a fresh id and empty draft sections.
func NewSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Anchor:    Unanchored(),
		HeadInfo:  NewSection(KindHeadInfo, now),
		Location:  NewSection(KindLocation, now),
		Price:     NewSection(KindPrice, now),
		Amenities: NewSection(KindAmenities, now),
		Rules:     NewSection(KindRules, now),
		Files:     NewSection(KindFiles, now),
		CreatedAt: now,
	}
}

// Section returns the record for kind, or nil for an unknown kind.
func (s *Session) Section(kind Kind) *Section {
	switch kind {
	case KindHeadInfo:
		return s.HeadInfo
	case KindLocation:
		return s.Location
	case KindPrice:
		return s.Price
	case KindAmenities:
		return s.Amenities
	case KindRules:
		return s.Rules
	case KindFiles:
		return s.Files
	}
	return nil
}

// Set replaces the section matching the payload kind and marks the
// session dirty.
func (s *Session) Set(data Payload, now time.Time) error {
	if err := Validate(data); err != nil {
		return err
	}
	sec := s.Section(data.Kind())
	if sec == nil {
		return ErrUnknownKind
	}
	sec.Edit(data, now)
	s.HasUnsavedChanges = true
	return nil
}

// FileHandles returns the staged files in order.
func (s *Session) FileHandles() FileList {
	if files, ok := s.Files.Data.(FileList); ok {
		return files
	}
	return nil
}

// AddFiles appends file handles to the files section.
func (s *Session) AddFiles(now time.Time, handles ...FileHandle) error {
	files := slices.Clone(s.FileHandles())
	for _, h := range handles {
		if h.Status == "" {
			h.Status = FilePending
		}
		files = append(files, h)
	}
	return s.Set(files, now)
}

// RemoveFile drops a file handle from the files section and returns it.
func (s *Session) RemoveFile(id string, now time.Time) (FileHandle, error) {
	files := s.FileHandles()
	idx := slices.IndexFunc(files, func(h FileHandle) bool { return h.ID == id })
	if idx < 0 {
		return FileHandle{}, ErrFileNotFound
	}
	removed := files[idx]
	s.Files.Edit(slices.Delete(slices.Clone(files), idx, idx+1), now)
	s.HasUnsavedChanges = true
	return removed, nil
}

// Title returns the head info title, or a placeholder.
func (s *Session) Title() string {
	if h, ok := s.HeadInfo.Data.(HeadInfo); ok && h.Title != "" {
		return h.Title
	}
	return UntitledTitle
}

// Progress is the fraction of sections whose status is synced.
func (s *Session) Progress() float64 {
	synced := 0
	for _, kind := range Kinds {
		if s.Section(kind).Synced() {
			synced++
		}
	}
	return float64(synced) / float64(len(Kinds))
}

// Summarize returns the listing view of the session.
func (s *Session) Summarize() Summary {
	remoteID, _ := s.Anchor.RemoteID()
	return Summary{
		ID:        s.ID,
		Title:     s.Title(),
		CreatedAt: s.CreatedAt,
		Progress:  s.Progress(),
		RemoteID:  remoteID,
	}
}

// Clone returns a deep copy sharing nothing with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.HeadInfo = s.HeadInfo.Clone()
	c.Location = s.Location.Clone()
	c.Price = s.Price.Clone()
	c.Amenities = s.Amenities.Clone()
	c.Rules = s.Rules.Clone()
	c.Files = s.Files.Clone()
	return &c
}

// MarshalJSON writes the anchor as an optional remoteId.
func (s Session) MarshalJSON() ([]byte, error) {
	type alias Session
	remoteID, _ := s.Anchor.RemoteID()
	return json.Marshal(struct {
		alias
		RemoteID string `json:"remoteId,omitempty"`
	}{alias: alias(s), RemoteID: remoteID})
}

// UnmarshalJSON restores the anchor and fills any missing sections.
func (s *Session) UnmarshalJSON(b []byte) error {
	type alias Session
	aux := struct {
		*alias
		RemoteID string `json:"remoteId"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.Anchor = AnchoredTo(aux.RemoteID)
	for _, kind := range Kinds {
		if s.Section(kind) == nil {
			s.setSection(kind, NewSection(kind, s.CreatedAt))
		}
	}
	return nil
}

func (s *Session) setSection(kind Kind, sec *Section) {
	switch kind {
	case KindHeadInfo:
		s.HeadInfo = sec
	case KindLocation:
		s.Location = sec
	case KindPrice:
		s.Price = sec
	case KindAmenities:
		s.Amenities = sec
	case KindRules:
		s.Rules = sec
	case KindFiles:
		s.Files = sec
	}
}
