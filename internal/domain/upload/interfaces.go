package upload

import (
	"context"

	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/listingapi"
)

// ListingAPI is the remote service sections are pushed to.
type ListingAPI interface {
	CreateRental(ctx context.Context, sessionID string, info draft.Payload) (*listingapi.Envelope, error)
	SubmitSection(ctx context.Context, kind draft.Kind, targetID string, data draft.Payload) (*listingapi.Envelope, error)
	UploadFiles(ctx context.Context, targetID string, files []draft.FileHandle) (*listingapi.Envelope, error)
}

// Registries gives serialized access to an owner's session registry.
type Registries interface {
	With(ctx context.Context, ownerID string, fn func(*registry.Registry) error) error
}
