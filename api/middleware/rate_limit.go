package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/api/responses"
	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
	"github.com/go-chi/httprate"
)

const (
	defaultWritesPerMinute = 120
	defaultLoginsPerMinute = 10
)

// WriteRateLimit limits mutating requests per operator, falling back to the
// client IP when the request is anonymous.
func WriteRateLimit(perMinute int, logg *logger.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = defaultWritesPerMinute
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many write requests"))
		}),
	)
}

func rateLimitKey(r *http.Request) (string, error) {
	if subject := SubjectFromContext(r.Context()); subject != "" {
		return "subject:" + subject, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

// LoginRateLimit limits sign-in attempts per client IP.
func LoginRateLimit(perMinute int, logg *logger.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = defaultLoginsPerMinute
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many sign-in attempts"))
		}),
	)
}
