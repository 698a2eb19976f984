package draft

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultThemeColor = "#FFFFFF"
	DefaultCountry    = "kenya"
	DefaultCurrency   = "KES"
)

// Payload is the closed set of section data variants.
type Payload interface {
	Kind() Kind
	// Empty reports whether the payload carries nothing worth uploading.
	Empty() bool
	validate() error
}

// HeadInfo is the basic information of a listing.
type HeadInfo struct {
	Title          string `json:"title"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	ThemeColor     string `json:"theme_color,omitempty"`
	YearBuilt      int    `json:"year_built,omitempty"`
	LotSize        string `json:"lot_size,omitempty"`
	FloorNumber    int    `json:"floor_number,omitempty"`
}

func (HeadInfo) Kind() Kind { return KindHeadInfo }

func (h HeadInfo) Empty() bool {
	return h.Title == "" && h.Category == "" && h.Description == "" && h.ProfilePicture == ""
}

func (h HeadInfo) validate() error {
	if h.YearBuilt < 0 || h.FloorNumber < 0 {
		return fmt.Errorf("%w: negative year built or floor number", ErrInvalidPayload)
	}
	return nil
}

// Coordinates is a point picked on the map.
type Coordinates struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// Location is where the listing is.
type Location struct {
	Country     string       `json:"country"`
	State       string       `json:"state,omitempty"`
	City        string       `json:"city"`
	Address     string       `json:"address,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

func (Location) Kind() Kind { return KindLocation }

func (l Location) Empty() bool {
	return l.Country == "" && l.State == "" && l.City == "" && l.Address == "" && l.Coordinates == nil
}

func (l Location) validate() error {
	if c := l.Coordinates; c != nil {
		if c.Lat < -90 || c.Lat > 90 || c.Long < -180 || c.Long > 180 {
			return fmt.Errorf("%w: coordinates out of range", ErrInvalidPayload)
		}
	}
	return nil
}

// Period is how often rent is due.
type Period string

const (
	PeriodDaily     Period = "daily"
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodAnnually  Period = "annually"
)

// DepositType describes how the deposit is computed.
type DepositType string

const (
	DepositOneMonth   DepositType = "One month rent"
	DepositTwoMonths  DepositType = "Two months rent"
	DepositFixed      DepositType = "Fixed amount"
	DepositNegotiable DepositType = "Negotiable"
)

// ExtraFee is a recurring charge on top of rent.
type ExtraFee struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Price is the rent and deposit terms.
type Price struct {
	Amount            float64     `json:"amount"`
	Currency          string      `json:"currency"`
	Period            Period      `json:"period"`
	DepositAmount     *float64    `json:"depositAmount,omitempty"`
	DepositType       DepositType `json:"depositType,omitempty"`
	IsRefundable      bool        `json:"isRefundable"`
	MinRentPeriod     int         `json:"minRentPeriod,omitempty"`
	UtilitiesIncluded []string    `json:"utilitiesIncluded,omitempty"`
	ExtraFees         []ExtraFee  `json:"extraFees,omitempty"`
}

func (Price) Kind() Kind { return KindPrice }

func (p Price) Empty() bool {
	return p.Amount == 0 && p.Currency == "" && p.Period == "" && p.DepositAmount == nil &&
		p.DepositType == "" && len(p.ExtraFees) == 0 && len(p.UtilitiesIncluded) == 0
}

func (p Price) validate() error {
	if p.Amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrInvalidPayload)
	}
	if p.DepositAmount != nil && *p.DepositAmount < 0 {
		return fmt.Errorf("%w: negative deposit", ErrInvalidPayload)
	}
	switch p.Period {
	case "", PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodAnnually:
	default:
		return fmt.Errorf("%w: unknown period %q", ErrInvalidPayload, p.Period)
	}
	switch p.DepositType {
	case "", DepositOneMonth, DepositTwoMonths, DepositFixed, DepositNegotiable:
	default:
		return fmt.Errorf("%w: unknown deposit type %q", ErrInvalidPayload, p.DepositType)
	}
	return nil
}

// Amenity is one feature offered with the listing.
type Amenity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	IsFree      bool   `json:"is_free"`
	SortOrder   int    `json:"sort_order,omitempty"`
}

// AmenityList is the amenities section payload.
type AmenityList []Amenity

func (AmenityList) Kind() Kind    { return KindAmenities }
func (a AmenityList) Empty() bool { return len(a) == 0 }

func (a AmenityList) validate() error {
	for _, am := range a {
		if am.ID == "" && am.Name == "" {
			return fmt.Errorf("%w: amenity needs an id or name", ErrInvalidPayload)
		}
	}
	return nil
}

// Rule is a house rule tenants agree to.
type Rule struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsMandatory bool      `json:"is_mandatory"`
	CreatedAt   time.Time `json:"created_at"`
}

// RuleList is the rules section payload.
type RuleList []Rule

func (RuleList) Kind() Kind    { return KindRules }
func (r RuleList) Empty() bool { return len(r) == 0 }

func (r RuleList) validate() error {
	for _, rule := range r {
		if strings.TrimSpace(rule.Title) == "" {
			return fmt.Errorf("%w: rule title required", ErrInvalidPayload)
		}
	}
	return nil
}

// FileStatus tracks a file handle through upload.
type FileStatus string

const (
	FilePending   FileStatus = "pending"
	FileUploading FileStatus = "uploading"
	FileCompleted FileStatus = "completed"
	FileFailed    FileStatus = "failed"
)

// FileHandle points at a staged file waiting to be uploaded.
type FileHandle struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ContentType string     `json:"contentType,omitempty"`
	Size        int64      `json:"size"`
	Path        string     `json:"path"`
	Status      FileStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// FileList is the files section payload.
type FileList []FileHandle

func (FileList) Kind() Kind    { return KindFiles }
func (f FileList) Empty() bool { return len(f) == 0 }

func (f FileList) validate() error {
	for _, h := range f {
		if h.ID == "" || h.Name == "" || h.Path == "" {
			return fmt.Errorf("%w: file handle needs id, name and path", ErrInvalidPayload)
		}
	}
	return nil
}

// Validate checks a payload at the section boundary.
func Validate(p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	return p.validate()
}

// DecodePayload parses raw section data for the given kind.
func DecodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case KindHeadInfo:
		var v HeadInfo
		err = json.Unmarshal(raw, &v)
		if v.ThemeColor == "" {
			v.ThemeColor = DefaultThemeColor
		}
		p = v
	case KindLocation:
		var v Location
		err = json.Unmarshal(raw, &v)
		p = v
	case KindPrice:
		var v Price
		err = json.Unmarshal(raw, &v)
		p = v
	case KindAmenities:
		var v AmenityList
		err = json.Unmarshal(raw, &v)
		p = v
	case KindRules:
		var v RuleList
		err = json.Unmarshal(raw, &v)
		p = v
	case KindFiles:
		var v FileList
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, ErrUnknownKind
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}
