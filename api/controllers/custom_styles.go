package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadhouse-backend/api/middleware"
	"github.com/angelmondragon/threadhouse-backend/api/responses"
	"github.com/angelmondragon/threadhouse-backend/api/validators"
	"github.com/angelmondragon/threadhouse-backend/internal/customstyles"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
	"github.com/angelmondragon/threadhouse-backend/pkg/pagination"
)

// CustomStyleSubmit accepts a design image plus the base product it goes on.
func CustomStyleSubmit(svc customstyles.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "custom style uploads are disabled"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		files, err := readMultipartFiles(w, r, "image", 1, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := submitInputFromForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Submit(r.Context(), actor.UserID, input, files[0])
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"message": "custom style request submitted",
			"request": created,
		})
	}
}

func submitInputFromForm(r *http.Request) (customstyles.SubmitInput, error) {
	input := customstyles.SubmitInput{
		FirstName:     r.FormValue("firstName"),
		Email:         r.FormValue("email"),
		ProductName:   r.FormValue("productName"),
		SelectedSize:  r.FormValue("selectedSize"),
		SelectedColor: r.FormValue("selectedColor"),
	}

	if raw := strings.TrimSpace(r.FormValue("productImages")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.ProductImages); err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "productImages must be a JSON array of urls")
		}
	}

	if raw := strings.TrimSpace(r.FormValue("productPrice")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "productPrice must be numeric")
		}
		input.ProductPrice = price
	}
	return input, nil
}

// CustomStyleList is the operator view over every request.
func CustomStyleList(svc customstyles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "custom styles unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := customstyles.ListInput{Limit: limit, Cursor: r.URL.Query().Get("cursor")}
		if raw := validators.OptionalQuery(r, "status"); raw != nil && *raw != "" {
			status, err := enums.ParseCustomStyleStatus(*raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}

		result, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CustomStyleListForUser(svc customstyles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "custom styles unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requests, err := svc.ListForUser(r.Context(), customstyles.Viewer{UserID: actor.UserID, Admin: actor.IsAdmin()}, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"requests": requests})
	}
}

func CustomStyleUpdateStatus(svc customstyles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "custom styles unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body struct {
			Status string `json:"status" validate:"required"`
		}
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateStatus(r.Context(), id, enums.CustomStyleStatus(strings.TrimSpace(body.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"message": "status updated", "request": updated})
	}
}

func CustomStyleDelete(svc customstyles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "custom styles unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "custom style request deleted"})
	}
}
