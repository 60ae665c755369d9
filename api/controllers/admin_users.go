package controllers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/amaliareyes/seamline-backend/api/responses"
	"github.com/amaliareyes/seamline-backend/api/validators"
	"github.com/amaliareyes/seamline-backend/internal/users"
	"github.com/amaliareyes/seamline-backend/pkg/enums"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
)

// AdminUsers lists active users by role so operators can pick an
// assignee for an order.
func AdminUsers(repo *users.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users repository unavailable"))
			return
		}
		raw := strings.TrimSpace(r.URL.Query().Get("role"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "role query parameter required").WithDetails(map[string]any{"field": "role"}))
			return
		}
		role, err := enums.ParseActorRole(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown role").WithDetails(map[string]any{"field": "role", "value": raw}))
			return
		}

		list, err := repo.ListByRole(r.Context(), role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users"))
			return
		}

		out := make([]*users.UserDTO, 0, len(list))
		for i := range list {
			out = append(out, users.FromModel(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"users": out})
	}
}

// AdminUserDetail returns a single user record for operators.
func AdminUserDetail(repo *users.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users repository unavailable"))
			return
		}
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := repo.FindByID(r.Context(), userID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "user not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user"))
			return
		}
		responses.WriteSuccess(w, users.FromModel(user))
	}
}
