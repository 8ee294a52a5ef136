package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/pos-catalog-backend/api/responses"
	pkgAuth "github.com/angelmondragon/pos-catalog-backend/pkg/auth"
	"github.com/angelmondragon/pos-catalog-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
)

// Auth is the access gate for mutating routes: it validates a bearer token
// and seeds the request context with the operator's subject and role.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithActor(r.Context(), claims.Subject, claims.Role.String())
			if logg != nil {
				ctx = logg.WithSubject(ctx, claims.Subject)
				ctx = logg.WithField(ctx, "actor_role", claims.Role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
