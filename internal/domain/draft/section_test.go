package draft_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/stretchr/testify/require"
)

func TestSection_EditResetsToDraft(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sec := draft.NewSection(draft.KindLocation, now)
	sec.MarkFailed("boom", now)
	prevID := sec.ID

	later := now.Add(time.Minute)
	sec.Edit(draft.Location{Country: "kenya", City: "Nairobi"}, later)

	require.Equal(t, draft.StatusDraft, sec.Status)
	require.Empty(t, sec.Error)
	require.NotEqual(t, prevID, sec.ID)
	require.Equal(t, later, sec.LastUpdated)
}

func TestSection_MarkFailedKeepsData(t *testing.T) {
	now := time.Now()
	sec := draft.NewSection(draft.KindPrice, now)
	sec.Edit(draft.Price{Amount: 100, Currency: "KES", Period: draft.PeriodMonthly}, now)

	sec.MarkFailed("gateway timeout", now)

	require.Equal(t, draft.StatusError, sec.Status)
	require.Equal(t, "gateway timeout", sec.Error)
	require.True(t, sec.HasData())

	sec.MarkSynced(now)
	require.True(t, sec.Synced())
	require.Empty(t, sec.Error)
}

func TestSection_JSONRoundTripKeepsVariant(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	sec := draft.NewSection(draft.KindAmenities, now)
	sec.Edit(draft.AmenityList{{ID: "a1", Name: "Wifi", IsFree: true}}, now)

	raw, err := json.Marshal(sec)
	require.NoError(t, err)

	var decoded draft.Section
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, draft.KindAmenities, decoded.Kind)
	require.Equal(t, draft.AmenityList{{ID: "a1", Name: "Wifi", IsFree: true}}, decoded.Data)
}

func TestDecodePayload_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		kind draft.Kind
		raw  string
		err  error
	}{
		{"unknown period", draft.KindPrice, `{"amount":10,"period":"hourly"}`, draft.ErrInvalidPayload},
		{"bad deposit type", draft.KindPrice, `{"depositType":"Whatever"}`, draft.ErrInvalidPayload},
		{"coordinates out of range", draft.KindLocation, `{"coordinates":{"lat":91,"long":0}}`, draft.ErrInvalidPayload},
		{"rule without title", draft.KindRules, `[{"id":"r1"}]`, draft.ErrInvalidPayload},
		{"malformed", draft.KindHeadInfo, `{"title":`, draft.ErrInvalidPayload},
		{"unknown kind", draft.Kind("garage"), `{}`, draft.ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := draft.DecodePayload(tt.kind, json.RawMessage(tt.raw))
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDecodePayload_DefaultsThemeColor(t *testing.T) {
	p, err := draft.DecodePayload(draft.KindHeadInfo, json.RawMessage(`{"title":"Loft"}`))
	require.NoError(t, err)
	require.Equal(t, draft.DefaultThemeColor, p.(draft.HeadInfo).ThemeColor)
}
