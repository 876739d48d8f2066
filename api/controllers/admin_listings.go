package controllers

import (
	"net/http"

	"github.com/oldphonedeals/backend/api/responses"
	"github.com/oldphonedeals/backend/api/validators"
	adminsvc "github.com/oldphonedeals/backend/internal/admin"
	listingssvc "github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/pkg/enums"
	"github.com/oldphonedeals/backend/pkg/logger"
)

// AdminSearchListings searches listings by title or brand, hidden ones included.
func AdminSearchListings(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.SearchListings(r.Context(), validators.SanitizeSearch(r.URL.Query().Get("query")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"listings": rows})
	}
}

// AdminUpdateListing applies a partial edit on behalf of an administrator.
func AdminUpdateListing(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentUserID(r)
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

		listing, err := svc.UpdateListing(r.Context(), adminID, listingID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// AdminToggleListing hides or restores a listing in the catalog.
func AdminToggleListing(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentUserID(r)
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

		if err := svc.SetListingDisabled(r.Context(), adminID, listingID, *payload.Disabled); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"disabled": *payload.Disabled})
	}
}

// AdminDeleteListing removes a listing and its reviews.
func AdminDeleteListing(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := pathUUID(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteListing(r.Context(), adminID, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"message": "listing deleted"})
	}
}
