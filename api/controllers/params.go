package controllers

import (
	"net/http"
	"strings"

	"github.com/amaliareyes/seamline-backend/api/validators"
	"github.com/amaliareyes/seamline-backend/internal/orders"
	"github.com/amaliareyes/seamline-backend/pkg/pagination"
)

func parseOrderListQuery(r *http.Request) (pagination.Params, orders.ListFilters, error) {
	var params pagination.Params
	var filters orders.ListFilters

	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return params, filters, err
	}
	params.Limit = limit
	params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

	status, err := validators.ParseQueryOrderStatus(r, "status")
	if err != nil {
		return params, filters, err
	}
	filters.Status = status

	from, err := validators.ParseQueryDate(r, "date_from")
	if err != nil {
		return params, filters, err
	}
	filters.DateFrom = from

	to, err := validators.ParseQueryDate(r, "date_to")
	if err != nil {
		return params, filters, err
	}
	filters.DateTo = to

	return params, filters, nil
}
