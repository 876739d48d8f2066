package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oldphonedeals/backend/api/responses"
	"github.com/oldphonedeals/backend/api/validators"
	adminsvc "github.com/oldphonedeals/backend/internal/admin"
	"github.com/oldphonedeals/backend/pkg/logger"
)

// AdminSearchReviews searches review comments across all listings.
func AdminSearchReviews(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.SearchReviews(r.Context(), validators.SanitizeSearch(r.URL.Query().Get("query")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"reviews": rows})
	}
}

type adminToggleReviewRequest struct {
	Reviewer *uuid.UUID `json:"reviewer" validate:"required"`
	IsHidden *bool      `json:"isHidden" validate:"required"`
}

// AdminToggleReview flips visibility for a reviewer's reviews on a listing.
func AdminToggleReview(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload adminToggleReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ToggleReview(r.Context(), adminID, listingID, *payload.Reviewer, *payload.IsHidden)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
