package registry

import (
	"time"

	"github.com/rpggio/listingdraft/internal/domain/draft"
)

// Snapshot is the persisted form of one owner's registry.
type Snapshot struct {
	OngoingCreate  *draft.Session            `json:"ongoingCreate"`
	ActiveRentalID string                    `json:"activeRentalId,omitempty"`
	RentalSessions map[string]*draft.Session `json:"rentalSessions"`
	SavedAt        time.Time                 `json:"savedAt"`
}
