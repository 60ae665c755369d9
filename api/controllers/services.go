package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/amaliareyes/seamline-backend/api/responses"
	"github.com/amaliareyes/seamline-backend/internal/catalog"
	pkgerrors "github.com/amaliareyes/seamline-backend/pkg/errors"
	"github.com/amaliareyes/seamline-backend/pkg/logger"
)

type serviceOfferingResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	BasePriceCents int       `json:"base_price_cents"`
}

// ListServices returns the active catalog for building a checkout basket.
func ListServices(repo *catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		offerings, err := repo.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list services"))
			return
		}
		out := make([]serviceOfferingResponse, 0, len(offerings))
		for _, offering := range offerings {
			out = append(out, serviceOfferingResponse{
				ID:             offering.ID,
				Name:           offering.Name,
				BasePriceCents: offering.BasePriceCents,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
