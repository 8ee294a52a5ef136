package controllers

import (
	"net/http"

	"github.com/angelmondragon/pos-catalog-backend/api/middleware"
	"github.com/angelmondragon/pos-catalog-backend/api/responses"
	"github.com/angelmondragon/pos-catalog-backend/api/validators"
	"github.com/angelmondragon/pos-catalog-backend/internal/auth"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
)

// AuthLogin exchanges staff credentials for an access token.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithSubject(r.Context(), result.User.ID.String()), "staff signed in")
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthRegister creates a staff account. The route is admin-only.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"registered_id": created.ID.String(),
				"role":          created.Role,
				"registered_by": middleware.SubjectFromContext(r.Context()),
			})
			logg.Info(ctx, "staff account registered")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}
