package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/greengate/api/responses"
	"github.com/angelmondragon/greengate/api/validators"
	"github.com/angelmondragon/greengate/internal/orders"
	"github.com/angelmondragon/greengate/internal/proxy"
	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/enums"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
	"github.com/angelmondragon/greengate/pkg/pagination"
)

type orderLister interface {
	List(ctx context.Context, filter orders.ListFilter) ([]models.Order, error)
}

// AdminOrders lists mirrored orders for review, optionally filtered by
// syncStatus and orderStatus.
func AdminOrders(svc orderLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := orders.ListFilter{Limit: limit}

		if raw := strings.TrimSpace(r.URL.Query().Get("syncStatus")); raw != "" {
			status := enums.SyncStatus(strings.ToLower(raw))
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid syncStatus").WithDetails(map[string]any{"field": "syncStatus"}))
				return
			}
			filter.SyncStatus = status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("orderStatus")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid orderStatus").WithDetails(map[string]any{"field": "orderStatus"}))
				return
			}
			filter.Status = status
		}

		rows, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]proxy.OrderView, 0, len(rows))
		for i := range rows {
			views = append(views, proxy.NewOrderView(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"orders": views})
	}
}
