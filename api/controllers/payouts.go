package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/api/middleware"
	"github.com/amaliareyes/seamline-backend/api/responses"
	"github.com/amaliareyes/seamline-backend/api/validators"
	"github.com/amaliareyes/seamline-backend/internal/payouts"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
	"github.com/amaliareyes/seamline-backend/pkg/pagination"
)

type markPaidRequest struct {
	Method string  `json:"method" validate:"required"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func parsePayoutListQuery(r *http.Request) (pagination.Params, payouts.ListFilters, error) {
	var params pagination.Params
	var filters payouts.ListFilters

	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return params, filters, err
	}
	params.Limit = limit
	params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.PayoutStatus(raw)
		if !status.IsValid() {
			return params, filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown payout status")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role := enums.ActorRole(raw)
		if role != enums.RoleRunner && role != enums.RoleTailor {
			return params, filters, pkgerrors.New(pkgerrors.CodeValidation, "payout role must be runner or tailor")
		}
		filters.Role = &role
	}
	return params, filters, nil
}

// MyPayouts lists the authenticated runner's or tailor's own payouts.
func MyPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		userID, _ := middleware.ActorFromContext(r.Context())
		params, filters, err := parsePayoutListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.UserID = &userID

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPayoutList(list))
	}
}

// AdminPayouts lists payouts across all orders for back-office settlement.
func AdminPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		params, filters, err := parsePayoutListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			userID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user_id must be a uuid"))
				return
			}
			filters.UserID = &userID
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPayoutList(list))
	}
}

// AdminOrderPayouts lists the payouts materialized for one order.
func AdminOrderPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]payoutResponse, 0, len(list))
		for _, payout := range list {
			out = append(out, toPayoutResponse(payout))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminPayoutMarkPaid records an off-platform settlement of one payout.
func AdminPayoutMarkPaid(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		payoutID, err := validators.ParseUUIDParam(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req markPaidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, role := middleware.ActorFromContext(r.Context())
		notes := req.Notes
		if notes != nil {
			clean := validators.SanitizeText(*notes, 500)
			notes = &clean
		}
		settled, err := svc.MarkPaid(r.Context(), payouts.MarkPaidInput{
			PayoutID:    payoutID,
			Method:      enums.PayoutMethod(req.Method),
			Notes:       notes,
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPayoutResponse(*settled))
	}
}

func toPayoutList(list *payouts.PayoutList) payoutListResponse {
	resp := payoutListResponse{
		Payouts:    make([]payoutResponse, 0, len(list.Payouts)),
		NextCursor: list.NextCursor,
	}
	for _, payout := range list.Payouts {
		resp.Payouts = append(resp.Payouts, toPayoutResponse(payout))
	}
	return resp
}
