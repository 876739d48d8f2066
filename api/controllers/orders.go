package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oldphonedeals/backend/api/responses"
	"github.com/oldphonedeals/backend/api/validators"
	checkoutsvc "github.com/oldphonedeals/backend/internal/checkout"
	orderssvc "github.com/oldphonedeals/backend/internal/orders"
	"github.com/oldphonedeals/backend/pkg/logger"
)

type placeOrderItem struct {
	ID       *uuid.UUID `json:"_id"`
	Number   *int       `json:"number"`
	ItemID   *uuid.UUID `json:"itemId"`
	Quantity *int       `json:"quantity"`
}

type placeOrderRequest struct {
	Items []placeOrderItem `json:"items"`
}

// PlaceOrder runs checkout over the submitted lines and returns the
// resulting order. Both the legacy `_id`/`number` keys and the newer
// `itemId`/`quantity` keys are accepted per line.
func PlaceOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]checkoutsvc.Line, 0, len(payload.Items))
		for _, item := range payload.Items {
			line := checkoutsvc.Line{}
			switch {
			case item.ID != nil:
				line.ListingID = *item.ID
			case item.ItemID != nil:
				line.ListingID = *item.ItemID
			}
			switch {
			case item.Number != nil:
				line.Quantity = *item.Number
			case item.Quantity != nil:
				line.Quantity = *item.Quantity
			}
			lines = append(lines, line)
		}

		order, err := svc.Execute(r.Context(), userID, lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// MyOrders lists the caller's orders, newest first.
func MyOrders(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
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
		responses.WriteSuccess(w, map[string]any{"orders": rows})
	}
}

// GetOrder fetches one of the caller's orders by id.
func GetOrder(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetMine(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
