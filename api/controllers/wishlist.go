package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oldphonedeals/backend/api/responses"
	"github.com/oldphonedeals/backend/api/validators"
	wishlistsvc "github.com/oldphonedeals/backend/internal/wishlist"
	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
	"github.com/oldphonedeals/backend/pkg/logger"
)

// GetWishlist lists the caller's saved listings, newest first.
func GetWishlist(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"wishlist": items})
	}
}

type wishlistItemRequest struct {
	ItemID *uuid.UUID `json:"itemId"`
	Action string     `json:"action" validate:"required"`
}

// MutateWishlist adds or removes one listing based on the action field.
func MutateWishlist(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload wishlistItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID := uuid.Nil
		if payload.ItemID != nil {
			listingID = *payload.ItemID
		}

		switch payload.Action {
		case "add":
			err = svc.Add(r.Context(), userID, listingID)
		case "remove":
			err = svc.Remove(r.Context(), userID, listingID)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "action must be add or remove")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"wishlist": items})
	}
}
