package controllers

import (
	"net/http"

	"github.com/angelmondragon/pos-catalog-backend/api/responses"
	"github.com/angelmondragon/pos-catalog-backend/api/validators"
	"github.com/angelmondragon/pos-catalog-backend/internal/categories"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
)

const (
	maxCategoryNameLen        = 120
	maxCategoryDescriptionLen = 1000
)

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=120"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func ListCategories(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.GetActiveByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func CreateCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.Create(r.Context(), categories.CreateCategoryInput{
			Name:        validators.SanitizeString(payload.Name, maxCategoryNameLen),
			Description: sanitizeOptional(payload.Description, maxCategoryDescriptionLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func UpdateCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.Update(r.Context(), id, categories.UpdateCategoryInput{
			Name:        sanitizeOptional(payload.Name, maxCategoryNameLen),
			Description: sanitizeOptional(payload.Description, maxCategoryDescriptionLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func DeleteCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SoftDelete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAck(w, "category deleted")
	}
}

func sanitizeOptional(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	clean := validators.SanitizeString(*value, maxLen)
	return &clean
}
