package upload

import (
	"fmt"
	"strings"

	"github.com/rpggio/listingdraft/internal/domain/draft"
)

var labels = map[draft.Kind]string{
	draft.KindHeadInfo:  "head info",
	draft.KindLocation:  "location",
	draft.KindPrice:     "price",
	draft.KindAmenities: "amenities",
	draft.KindRules:     "rules",
	draft.KindFiles:     "files",
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func notAnchoredMessage(kind draft.Kind) string {
	return "Create rental first before uploading " + labels[kind]
}

func noDataMessage(kind draft.Kind) string {
	if kind == draft.KindFiles {
		return "No files to upload"
	}
	return fmt.Sprintf("No %s data to upload", labels[kind])
}

func successMessage(kind draft.Kind) string {
	if kind == draft.KindFiles {
		return "Files uploaded successfully"
	}
	return capitalize(labels[kind]) + " saved successfully"
}

func failureMessage(kind draft.Kind) string {
	if kind == draft.KindFiles {
		return "Failed to upload files"
	}
	return "Failed to save " + labels[kind]
}

const persistedMessage = "All sections saved successfully"

func persistFailedMessage(n int) string {
	return fmt.Sprintf("Failed to upload %d section(s)", n)
}
