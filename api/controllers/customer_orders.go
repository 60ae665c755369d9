package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/api/middleware"
	"github.com/amaliareyes/seamline-backend/api/responses"
	"github.com/amaliareyes/seamline-backend/api/validators"
	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/internal/payments"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
)

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type payRequest struct {
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

type payResponse struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	SessionID   string    `json:"session_id"`
	CheckoutURL string    `json:"checkout_url"`
}

// CustomerOrders lists the authenticated customer's orders.
func CustomerOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, _ := middleware.ActorFromContext(r.Context())
		params, filters, err := parseOrderListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForCustomer(r.Context(), userID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderListResponse(list.Orders, list.NextCursor))
	}
}

// CustomerOrderDetail returns one order with items, payments, payouts and
// timeline; only the owning customer may see it.
func CustomerOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetDetail(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, role := middleware.ActorFromContext(r.Context())
		if !role.IsOperator() && order.CustomerID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// CustomerOrderTimeline returns the order's audit trail.
func CustomerOrderTimeline(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, role := middleware.ActorFromContext(r.Context())
		if !role.IsOperator() && order.CustomerID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		entries, err := svc.Timeline(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]timelineEntryResponse, 0, len(entries))
		for _, entry := range entries {
			out = append(out, toTimelineResponse(entry))
		}
		responses.WriteSuccess(w, out)
	}
}

// CustomerOrderPay opens a checkout session for an already booked order.
func CustomerOrderPay(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req payRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, _ := middleware.ActorFromContext(r.Context())
		result, err := svc.Initiate(r.Context(), payments.InitiateInput{
			OrderID:       orderID,
			ActorUserID:   userID,
			CustomerEmail: req.CustomerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payResponse{
			PaymentID:   result.PaymentID,
			SessionID:   result.SessionID,
			CheckoutURL: result.CheckoutURL,
		})
	}
}

// CustomerOrderCancel cancels the customer's own order while it is still
// cancellable.
func CustomerOrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, role := middleware.ActorFromContext(r.Context())

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !role.IsOperator() && order.CustomerID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		cancelled, err := svc.Cancel(r.Context(), orders.CancelInput{
			OrderID:     orderID,
			ActorUserID: userID,
			ActorRole:   role,
			Reason:      validators.SanitizeText(req.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(cancelled))
	}
}
