package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/api/middleware"
	"github.com/amaliareyes/seamline-backend/api/responses"
	"github.com/amaliareyes/seamline-backend/api/validators"
	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/internal/refunds"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
)

type assignRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// refundRequest reverses money against an order's payment. Omitting
// amount_cents refunds the whole remaining refundable balance.
type refundRequest struct {
	AmountCents *int   `json:"amount_cents,omitempty" validate:"omitempty,min=1"`
	Reason      string `json:"reason" validate:"required,min=3,max=500"`
}

type refundResponse struct {
	PaymentID      uuid.UUID `json:"payment_id"`
	RefundedCents  int       `json:"refunded_cents"`
	RemainingCents int       `json:"remaining_cents"`
	Full           bool      `json:"full"`
}

// AdminOrders lists every order for back-office operators.
func AdminOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		params, filters, err := parseOrderListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListAll(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderListResponse(list.Orders, list.NextCursor))
	}
}

// AdminOrderDetail returns the full order aggregate for operators.
func AdminOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// AdminOrderCancel cancels any non-terminal order with a mandatory reason.
func AdminOrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		order, err := svc.Cancel(r.Context(), orders.CancelInput{
			OrderID:     orderID,
			ActorUserID: userID,
			ActorRole:   role,
			Reason:      validators.SanitizeText(req.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// AdminAssignRunner attaches a runner to an order.
func AdminAssignRunner(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminAssign(svc, logg, func(r *http.Request, svc orders.Service, input orders.AssignInput) error {
		return svc.AssignRunner(r.Context(), input)
	})
}

// AdminAssignTailor attaches a tailor to an order.
func AdminAssignTailor(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return adminAssign(svc, logg, func(r *http.Request, svc orders.Service, input orders.AssignInput) error {
		return svc.AssignTailor(r.Context(), input)
	})
}

func adminAssign(svc orders.Service, logg *logger.Logger, apply func(*http.Request, orders.Service, orders.AssignInput) error) http.HandlerFunc {
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
		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, role := middleware.ActorFromContext(r.Context())
		if err := apply(r, svc, orders.AssignInput{
			OrderID:     orderID,
			AssigneeID:  req.UserID,
			ActorUserID: userID,
			ActorRole:   role,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// AdminOrderRefund reverses part or all of an order's captured payment.
func AdminOrderRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, role := middleware.ActorFromContext(r.Context())
		result, err := svc.Refund(r.Context(), refunds.RefundInput{
			OrderID:     orderID,
			AmountCents: req.AmountCents,
			Reason:      validators.SanitizeText(req.Reason, 500),
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, refundResponse{
			PaymentID:      result.PaymentID,
			RefundedCents:  result.RefundedCents,
			RemainingCents: result.RemainingCents,
			Full:           result.Full,
		})
	}
}
