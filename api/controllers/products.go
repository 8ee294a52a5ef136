package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-catalog-backend/api/responses"
	"github.com/angelmondragon/pos-catalog-backend/api/validators"
	product "github.com/angelmondragon/pos-catalog-backend/internal/products"
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
)

// Form fields and the JSON envelope share the image limit plus this slack.
const formOverheadBytes = 1 << 20

const imageField = "image"

type productRequest struct {
	Name          *string          `json:"name" validate:"omitempty,max=200"`
	CategoryID    *uuid.UUID       `json:"category_id"`
	Description   *string          `json:"description" validate:"omitempty,max=2000"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
	Quantity      *int             `json:"quantity"`
	MinStock      *int             `json:"min_stock"`
	TaxRate       *float64         `json:"tax_rate"`
	DiscountRate  *float64         `json:"discount_rate"`
	Unit          *string          `json:"unit"`
	Barcode       *string          `json:"barcode" validate:"omitempty,max=64"`
	Location      *string          `json:"location" validate:"omitempty,max=120"`
}

func (p productRequest) unit() *enums.ProductUnit {
	if p.Unit == nil {
		return nil
	}
	unit := enums.ProductUnit(*p.Unit)
	return &unit
}

func (p productRequest) toCreateInput() product.CreateProductInput {
	input := product.CreateProductInput{
		CategoryID:    p.CategoryID,
		Description:   p.Description,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		Quantity:      p.Quantity,
		MinStock:      p.MinStock,
		TaxRate:       p.TaxRate,
		DiscountRate:  p.DiscountRate,
		Unit:          p.unit(),
		Barcode:       p.Barcode,
		Location:      p.Location,
	}
	if p.Name != nil {
		input.Name = *p.Name
	}
	return input
}

func (p productRequest) toUpdateInput() product.UpdateProductInput {
	return product.UpdateProductInput{
		Name:          p.Name,
		CategoryID:    p.CategoryID,
		Description:   p.Description,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		Quantity:      p.Quantity,
		MinStock:      p.MinStock,
		TaxRate:       p.TaxRate,
		DiscountRate:  p.DiscountRate,
		Unit:          p.unit(),
		Barcode:       p.Barcode,
		Location:      p.Location,
	}
}

type stockRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive out_of_stock"`
}

func ListProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ListActiveProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListProductsForSale serves the point-of-sale cart view.
func ListProductsForSale(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListForSale(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CreateProduct accepts JSON or multipart/form-data with an optional image
// part.
func CreateProduct(svc product.Service, maxImageBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+formOverheadBytes)
		var payload productRequest
		upload, cleanup, err := validators.DecodeBody(r, &payload, imageField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer cleanup()

		dto, err := svc.Create(r.Context(), payload.toCreateInput(), upload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithProductID(r.Context(), dto.ID.String()), "product created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func UpdateProduct(svc product.Service, maxImageBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+formOverheadBytes)
		var payload productRequest
		upload, cleanup, err := validators.DecodeBody(r, &payload, imageField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer cleanup()

		dto, err := svc.Update(r.Context(), id, payload.toUpdateInput(), upload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// AdjustProductStock applies the signed quantity delta in the body.
func AdjustProductStock(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload stockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.AdjustStock(r.Context(), id, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithProductID(r.Context(), id.String())
			ctx = logg.WithFields(ctx, map[string]any{
				"delta":             *payload.Quantity,
				"previous_quantity": result.PreviousQuantity,
				"new_quantity":      result.NewQuantity,
			})
			logg.Info(ctx, "stock adjusted")
		}
		responses.WriteSuccess(w, result)
	}
}

// SetProductStatus is the administrative status override.
func SetProductStatus(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.SetStatus(r.Context(), id, enums.ProductStatus(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithProductID(r.Context(), id.String())
			logg.Warn(logg.WithField(ctx, "status", payload.Status), "product status overridden")
		}
		responses.WriteSuccess(w, dto)
	}
}

func DeleteProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
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
		responses.WriteAck(w, "product deleted")
	}
}
