package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadhouse-backend/api/responses"
	"github.com/angelmondragon/threadhouse-backend/api/validators"
	"github.com/angelmondragon/threadhouse-backend/internal/media"
	productsvc "github.com/angelmondragon/threadhouse-backend/internal/products"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
	"github.com/angelmondragon/threadhouse-backend/pkg/pagination"
)

// ProductList serves the public catalog listing.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := productsvc.ProductListFilters{Query: validators.SanitizeString(r.URL.Query().Get("q"), 100)}
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			filters.Category = &category
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("gender")); raw != "" {
			gender, err := enums.ParseGender(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gender"))
				return
			}
			filters.Gender = &gender
		}

		result, err := svc.ListProducts(r.Context(), productsvc.ListProductsInput{
			Filters:    filters,
			Pagination: pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductCreate handles catalog inserts. Admin only.
func ProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"message": "product added", "product": product})
	}
}

type createProductRequest struct {
	Name        string            `json:"name" validate:"required,max=200"`
	Description string            `json:"description" validate:"required"`
	Category    string            `json:"category"`
	Gender      string            `json:"gender" validate:"required"`
	Price       decimal.Decimal   `json:"price"`
	Stock       int               `json:"stock" validate:"min=0"`
	Sizes       []string          `json:"size" validate:"required,min=1,dive,required"`
	Colors      []string          `json:"color" validate:"required,min=1,dive,required"`
	Images      []string          `json:"images" validate:"required,min=1,dive,required"`
	Tags        []string          `json:"tags,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

func (r createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	var category enums.ProductCategory
	if raw := strings.TrimSpace(r.Category); raw != "" {
		parsed, err := enums.ParseProductCategory(raw)
		if err != nil {
			return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		category = parsed
	}
	gender, err := enums.ParseGender(strings.TrimSpace(r.Gender))
	if err != nil {
		return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gender")
	}
	if r.Price.IsNegative() {
		return productsvc.CreateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	return productsvc.CreateProductInput{
		Name:        r.Name,
		Description: r.Description,
		Category:    category,
		Gender:      gender,
		Price:       r.Price,
		Stock:       r.Stock,
		Sizes:       r.Sizes,
		Colors:      r.Colors,
		Images:      r.Images,
		Tags:        r.Tags,
		Details:     r.Details,
	}, nil
}

// ProductUpdate applies a partial update. Admin only.
func ProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"message": "product updated", "product": product})
	}
}

type updateProductRequest struct {
	Name        *string            `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string            `json:"description,omitempty"`
	Category    *string            `json:"category,omitempty"`
	Gender      *string            `json:"gender,omitempty"`
	Price       *decimal.Decimal   `json:"price,omitempty"`
	Stock       *int               `json:"stock,omitempty" validate:"omitempty,min=0"`
	Sizes       *[]string          `json:"size,omitempty"`
	Colors      *[]string          `json:"color,omitempty"`
	Images      *[]string          `json:"images,omitempty"`
	Tags        *[]string          `json:"tags,omitempty"`
	Details     *map[string]string `json:"details,omitempty"`
}

func (r updateProductRequest) toUpdateInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Sizes:       r.Sizes,
		Colors:      r.Colors,
		Images:      r.Images,
		Tags:        r.Tags,
		Details:     r.Details,
	}
	if r.Category != nil {
		category, err := enums.ParseProductCategory(strings.TrimSpace(*r.Category))
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		input.Category = &category
	}
	if r.Gender != nil {
		gender, err := enums.ParseGender(strings.TrimSpace(*r.Gender))
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gender")
		}
		input.Gender = &gender
	}
	if r.Price != nil && r.Price.IsNegative() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return input, nil
}

// ProductUpdateDetails merges the details map only.
func ProductUpdateDetails(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload struct {
			Details map[string]string `json:"details" validate:"required"`
		}
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateDetails(r.Context(), id, payload.Details)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"message": "product details updated", "product": product})
	}
}

func ProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "product deleted"})
	}
}

// ProductImageUpload stores catalog images and returns their public URLs.
func ProductImageUpload(svc media.Service, maxFiles int, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "image uploads are disabled"))
			return
		}

		files, err := readMultipartFiles(w, r, "images", maxFiles, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploads, err := svc.UploadImages(r.Context(), enums.MediaKindProduct, files)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		urls := make([]string, 0, len(uploads))
		for _, u := range uploads {
			urls = append(urls, u.URL)
		}
		responses.WriteSuccess(w, map[string]any{"urls": urls, "uploads": uploads})
	}
}
