package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSection returns an empty draft section of the given kind.
func NewSection(kind Kind, now time.Time) *Section {
	return &Section{
		ID:          uuid.NewString(),
		Kind:        kind,
		Status:      StatusDraft,
		LastUpdated: now,
	}
}

// Edit replaces the section data. Any prior state moves back to draft.
func (s *Section) Edit(data Payload, now time.Time) {
	s.ID = uuid.NewString()
	s.Data = data
	s.Status = StatusDraft
	s.Error = ""
	s.LastUpdated = now
}

// MarkSynced records a successful remote write.
func (s *Section) MarkSynced(now time.Time) {
	s.Status = StatusSynced
	s.Error = ""
	s.LastUpdated = now
}

// MarkFailed records a failed remote write. Data is kept for retry.
func (s *Section) MarkFailed(msg string, now time.Time) {
	s.Status = StatusError
	s.Error = msg
	s.LastUpdated = now
}

// HasData reports whether the section carries uploadable data.
func (s *Section) HasData() bool {
	return s != nil && s.Data != nil && !s.Data.Empty()
}

// Synced reports whether the section's current data is on the remote.
func (s *Section) Synced() bool {
	return s != nil && s.Status == StatusSynced
}

// Clone returns a deep copy of the section.
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}
	c := *s
	c.Data = clonePayload(s.Data)
	return &c
}

func clonePayload(p Payload) Payload {
	switch v := p.(type) {
	case Location:
		if v.Coordinates != nil {
			c := *v.Coordinates
			v.Coordinates = &c
		}
		return v
	case Price:
		if v.DepositAmount != nil {
			d := *v.DepositAmount
			v.DepositAmount = &d
		}
		v.UtilitiesIncluded = append([]string(nil), v.UtilitiesIncluded...)
		v.ExtraFees = append([]ExtraFee(nil), v.ExtraFees...)
		return v
	case AmenityList:
		return append(AmenityList(nil), v...)
	case RuleList:
		return append(RuleList(nil), v...)
	case FileList:
		return append(FileList(nil), v...)
	default:
		return p
	}
}

// UnmarshalJSON decodes data according to the section kind.
func (s *Section) UnmarshalJSON(b []byte) error {
	type alias Section
	aux := struct {
		*alias
		Data json.RawMessage `json:"data"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.Data = nil
	if len(aux.Data) == 0 || bytes.Equal(aux.Data, []byte("null")) {
		return nil
	}
	data, err := DecodePayload(s.Kind, aux.Data)
	if err != nil {
		return fmt.Errorf("section %s: %w", s.Kind, err)
	}
	s.Data = data
	return nil
}
