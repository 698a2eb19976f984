package transport

import (
	"errors"
	"net/http"

	"github.com/rpggio/listingdraft/internal/domain/activity"
	"github.com/rpggio/listingdraft/internal/domain/draft"
	"github.com/rpggio/listingdraft/internal/domain/pending"
	"github.com/rpggio/listingdraft/internal/domain/registry"
	"github.com/rpggio/listingdraft/internal/listingapi"
	"github.com/rpggio/listingdraft/internal/staging"
)

// statusFor maps domain errors to HTTP status codes. Unmapped errors are
// internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrSessionNotFound), errors.Is(err, draft.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, draft.ErrInvalidPayload),
		errors.Is(err, draft.ErrUnknownKind),
		errors.Is(err, registry.ErrInvalidInput),
		errors.Is(err, pending.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, listingapi.ErrNoToken):
		return http.StatusBadRequest
	case errors.Is(err, staging.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnauthorized), errors.Is(err, listingapi.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteError(w, status, "internal error")
		return
	}
	WriteError(w, status, err.Error())
}
