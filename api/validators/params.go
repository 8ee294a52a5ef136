package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ParseUUIDParam reads a chi URL parameter as a UUID. A malformed id cannot
// match any record, so it is reported as not found.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "no record with %s %q", name, raw)
	}
	return id, nil
}
