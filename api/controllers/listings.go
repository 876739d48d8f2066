package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/oldphonedeals/backend/api/responses"
	"github.com/oldphonedeals/backend/api/validators"
	listingssvc "github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/internal/media"
	"github.com/oldphonedeals/backend/pkg/config"
	"github.com/oldphonedeals/backend/pkg/enums"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/logger"
)

// MyListings lists the caller's own listings, including disabled ones.
func MyListings(svc listingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMine(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"listings": rows})
	}
}

type createListingRequest struct {
	Title string          `json:"title"`
	Brand string          `json:"brand"`
	Image string          `json:"image"`
	Stock int             `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

// CreateListing publishes a new listing owned by the caller.
func CreateListing(svc listingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Create(r.Context(), userID, listingssvc.CreateListingInput{
			Title: payload.Title,
			Brand: enums.PhoneBrand(payload.Brand),
			Image: payload.Image,
			Stock: payload.Stock,
			Price: payload.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

type updateListingRequest struct {
	Title *string          `json:"title"`
	Brand *string          `json:"brand"`
	Image *string          `json:"image"`
	Stock *int             `json:"stock"`
	Price *decimal.Decimal `json:"price"`
}

// UpdateListing applies a partial edit to one of the caller's listings.
func UpdateListing(svc listingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathUUID(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := listingssvc.UpdateListingInput{
			Title: payload.Title,
			Image: payload.Image,
			Stock: payload.Stock,
			Price: payload.Price,
		}
		if payload.Brand != nil {
			brand := enums.PhoneBrand(*payload.Brand)
			input.Brand = &brand
		}

		listing, err := svc.Update(r.Context(), userID, listingID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

type toggleListingRequest struct {
	Disabled *bool `json:"disabled" validate:"required"`
}

// ToggleListing enables or disables one of the caller's listings.
func ToggleListing(svc listingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathUUID(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload toggleListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetDisabled(r.Context(), userID, listingID, *payload.Disabled); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"disabled": *payload.Disabled})
	}
}

// DeleteListing removes one of the caller's listings.
func DeleteListing(svc listingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathUUID(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"message": "listing deleted"})
	}
}

// UploadListingImage stores a multipart image and returns its served name.
func UploadListingImage(store *media.Store, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := currentUserID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		maxBytes := int64(cfg.MaxUploadMB) << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse upload"))
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "image file is required"))
			return
		}
		defer file.Close()

		name, err := store.Save(header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"image": name})
	}
}
