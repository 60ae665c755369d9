package controllers

import (
	"net/http"

	"github.com/amaliareyes/seamline-backend/api/middleware"
	"github.com/amaliareyes/seamline-backend/api/responses"
	"github.com/amaliareyes/seamline-backend/api/validators"
	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
)

type advanceRequest struct {
	TargetStatus string  `json:"target_status" validate:"required"`
	Override     bool    `json:"override,omitempty"`
	Reason       *string `json:"reason,omitempty"`
}

type itemStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// RunnerOrders lists the orders assigned to the authenticated runner.
func RunnerOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		list, err := svc.ListForRunner(r.Context(), userID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderListResponse(list.Orders, list.NextCursor))
	}
}

// TailorOrders lists the orders assigned to the authenticated tailor.
func TailorOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		list, err := svc.ListForTailor(r.Context(), userID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderListResponse(list.Orders, list.NextCursor))
	}
}

// UpdateOrderItemStatus records per-garment progress. The order cannot reach
// ready until every item is done, so tailors report item status here first.
func UpdateOrderItemStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req itemStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderItemStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown item status"))
			return
		}

		userID, role := middleware.ActorFromContext(r.Context())
		item, err := svc.UpdateItemStatus(r.Context(), orders.UpdateItemStatusInput{
			OrderID:     orderID,
			ItemID:      itemID,
			Status:      status,
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderItemResponse{
			ID:             item.ID,
			ServiceID:      item.ServiceID,
			ServiceName:    item.ServiceName,
			BasePriceCents: item.BasePriceCents,
			Qty:            item.Qty,
			PriceCents:     item.PriceCents,
			Status:         string(item.Status),
		})
	}
}

// AdvanceOrder moves an order one step forward in the pipeline. The service
// enforces which roles may claim which edge; Override is operator-only.
func AdvanceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req advanceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target := enums.OrderStatus(req.TargetStatus)
		if !target.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status"))
			return
		}

		userID, role := middleware.ActorFromContext(r.Context())
		order, err := svc.Advance(r.Context(), orders.AdvanceInput{
			OrderID:      orderID,
			TargetStatus: target,
			ActorUserID:  userID,
			ActorRole:    role,
			Override:     req.Override,
			Reason:       req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}
