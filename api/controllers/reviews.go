package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oldphonedeals/backend/api/responses"
	"github.com/oldphonedeals/backend/api/validators"
	reviewsvc "github.com/oldphonedeals/backend/internal/reviews"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/logger"
)

type postReviewRequest struct {
	ReviewData struct {
		ProductID *uuid.UUID `json:"productId"`
		Reviewer  *uuid.UUID `json:"reviewer"`
		Rating    *int       `json:"rating"`
		Comment   *string    `json:"comment"`
	} `json:"reviewData"`
}

// PostReview appends a review to a listing. Field presence is validated
// inside the service in a fixed order.
func PostReview(svc reviewsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload postReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// The body names a reviewer, but the session identity wins.
		reviewer := payload.ReviewData.Reviewer
		if reviewer == nil {
			reviewer = &userID
		} else if *reviewer != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot review as another user"))
			return
		}

		review, err := svc.Post(r.Context(), reviewsvc.PostInput{
			ListingID:  payload.ReviewData.ProductID,
			ReviewerID: reviewer,
			Rating:     payload.ReviewData.Rating,
			Comment:    payload.ReviewData.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}

type toggleVisibilityRequest struct {
	IsHidden *bool      `json:"isHidden" validate:"required"`
	Reviewer *uuid.UUID `json:"reviewer" validate:"required"`
}

// ToggleReviewVisibility flips hidden on every review the reviewer left on
// the listing. Allowed for the reviewer themselves or the listing seller.
func ToggleReviewVisibility(svc reviewsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload toggleVisibilityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ToggleVisibility(r.Context(), userID, listingID, *payload.Reviewer, *payload.IsHidden)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MyReviews lists the reviews the authenticated user has written.
func MyReviews(svc reviewsvc.Service, logg *logger.Logger) http.HandlerFunc {
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
		responses.WriteSuccess(w, map[string]any{"reviews": rows})
	}
}
