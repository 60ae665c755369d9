package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/api/middleware"
	"github.com/amaliareyes/seamline-backend/api/responses"
	"github.com/amaliareyes/seamline-backend/api/validators"
	checkoutsvc "github.com/amaliareyes/seamline-backend/internal/checkout"
	"github.com/amaliareyes/seamline-backend/internal/orders"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
	"github.com/amaliareyes/seamline-backend/pkg/types"
)

type checkoutItemRequest struct {
	ServiceID uuid.UUID `json:"service_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1,max=50"`
}

type checkoutRequest struct {
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	CollectionDate  *string               `json:"collection_date,omitempty"`
	CollectionSlot  *string               `json:"collection_slot,omitempty"`
	DeliveryAddress types.Address         `json:"delivery_address" validate:"required"`
	CustomerEmail   string                `json:"customer_email" validate:"required,email"`
}

type checkoutResponse struct {
	Order       orderResponse `json:"order"`
	PaymentID   uuid.UUID     `json:"payment_id"`
	SessionID   string        `json:"session_id"`
	CheckoutURL string        `json:"checkout_url"`
}

// Checkout books an order for the authenticated customer and returns the
// hosted payment page handle.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, _ := middleware.ActorFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.ExecuteInput{
			Order: orders.CreateOrderInput{
				CustomerID:      userID,
				CollectionSlot:  req.CollectionSlot,
				DeliveryAddress: req.DeliveryAddress,
			},
			CustomerEmail: req.CustomerEmail,
		}
		for _, item := range req.Items {
			input.Order.Items = append(input.Order.Items, orders.CreateOrderItemInput{
				ServiceID: item.ServiceID,
				Qty:       item.Qty,
			})
		}
		if req.CollectionDate != nil {
			parsed, err := time.Parse("2006-01-02", *req.CollectionDate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "collection_date must be YYYY-MM-DD"))
				return
			}
			input.Order.CollectionDate = &parsed
		}

		result, err := svc.Execute(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:       toOrderResponse(result.Order),
			PaymentID:   result.PaymentID,
			SessionID:   result.SessionID,
			CheckoutURL: result.CheckoutURL,
		})
	}
}
