package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oldphonedeals/backend/api/middleware"
	"github.com/oldphonedeals/backend/api/responses"
	"github.com/oldphonedeals/backend/api/validators"
	listingsvc "github.com/oldphonedeals/backend/internal/listings"
	"github.com/oldphonedeals/backend/pkg/logger"
)

// SoldOutSoon returns the listings closest to running out of stock.
func SoldOutSoon(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phones, err := svc.SoldOutSoon(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"phonelist": phones})
	}
}

// BestSellers returns the top rated listings.
func BestSellers(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phones, err := svc.BestSellers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"bestSellers": phones})
	}
}

// SearchPhones matches listings by title substring.
func SearchPhones(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phones, err := svc.Search(r.Context(), validators.SanitizeSearch(r.URL.Query().Get("queryString")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"phonelist": phones})
	}
}

// PhoneBrands lists the fixed brand catalog.
func PhoneBrands(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"brands": svc.Brands(r.Context())})
	}
}

// GetPhone returns one listing with its visible reviews. An authenticated
// viewer also sees their own hidden reviews, and sellers see every review
// on their listings.
func GetPhone(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "listingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewerID := uuid.Nil
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			if parsed, perr := uuid.Parse(raw); perr == nil {
				viewerID = parsed
			}
		}

		phone, err := svc.Get(r.Context(), id, viewerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, phone)
	}
}
