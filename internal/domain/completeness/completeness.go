// Package completeness reports which listing fields are still missing.
package completeness

import (
	"math"

	"github.com/rpggio/listingdraft/internal/domain/draft"
)

// TotalRequiredFields is the fixed denominator for CompletionPercentage.
// It does not track how many required checks actually ran.
const TotalRequiredFields = 9

// Section labels as shown to users.
const (
	SectionBasicInfo = "Basic Information"
	SectionFiles     = "Files"
	SectionAmenities = "Amenities"
	SectionLocation  = "Location"
	SectionRules     = "Rules"
	SectionPricing   = "Pricing"
)

// Missing identifies a gap. An empty Field means the whole section.
type Missing struct {
	Section string `json:"section"`
	Field   string `json:"field,omitempty"`
}

func (m Missing) String() string {
	if m.Field == "" {
		return m.Section
	}
	return m.Section + ": " + m.Field
}

// Report is the gap report for one session.
type Report struct {
	RequiredMissing      []Missing `json:"requiredMissing"`
	OptionalMissing      []Missing `json:"optionalMissing"`
	IsComplete           bool      `json:"isComplete"`
	CompletionPercentage int       `json:"completionPercentage"`
	MissingRequiredCount int       `json:"missingRequiredCount"`
	MissingOptionalCount int       `json:"missingOptionalCount"`
}

// Evaluate derives the gap report from section data alone. Sync status
// plays no part.
func Evaluate(sess *draft.Session) Report {
	var r Report
	required := func(section, field string) {
		r.RequiredMissing = append(r.RequiredMissing, Missing{Section: section, Field: field})
	}
	optional := func(section, field string) {
		r.OptionalMissing = append(r.OptionalMissing, Missing{Section: section, Field: field})
	}

	if head, ok := sess.HeadInfo.Data.(draft.HeadInfo); !ok {
		required(SectionBasicInfo, "")
	} else {
		if head.Title == "" {
			required(SectionBasicInfo, "Title")
		}
		if head.Category == "" {
			required(SectionBasicInfo, "Category")
		}
		if head.Description == "" {
			required(SectionBasicInfo, "Description")
		}
	}

	if len(sess.FileHandles()) == 0 {
		required(SectionFiles, "")
	}

	if !sess.Amenities.HasData() {
		optional(SectionAmenities, "")
	}

	if loc, ok := sess.Location.Data.(draft.Location); !ok {
		required(SectionLocation, "")
	} else {
		if loc.Country == "" {
			required(SectionLocation, "Country")
		}
		if loc.City == "" {
			required(SectionLocation, "City")
		}
		if loc.Coordinates == nil {
			optional(SectionLocation, "Map Coordinates")
		}
	}

	if !sess.Rules.HasData() {
		optional(SectionRules, "")
	}

	if price, ok := sess.Price.Data.(draft.Price); !ok {
		required(SectionPricing, "")
	} else {
		if price.Amount <= 0 {
			required(SectionPricing, "Amount")
		}
		if price.Currency == "" {
			required(SectionPricing, "Currency")
		}
		if price.Period == "" {
			required(SectionPricing, "Rental Period")
		}
		if price.DepositAmount == nil {
			optional(SectionPricing, "Deposit Amount")
		}
		if price.DepositType == "" {
			optional(SectionPricing, "Deposit Type")
		}
	}

	r.MissingRequiredCount = len(r.RequiredMissing)
	r.MissingOptionalCount = len(r.OptionalMissing)
	r.IsComplete = r.MissingRequiredCount == 0
	pct := math.Round(float64(TotalRequiredFields-r.MissingRequiredCount) / TotalRequiredFields * 100)
	r.CompletionPercentage = int(math.Max(0, pct))
	return r
}

// Strings flattens entries to "Section: Field" form.
func Strings(entries []Missing) []string {
	out := make([]string, len(entries))
	for i, m := range entries {
		out[i] = m.String()
	}
	return out
}
