package shifts

import (
	"net/http"
	"time"

	"github.com/faacuromano/control-gastronomicoV2-sub000/api/middleware"
	"github.com/faacuromano/control-gastronomicoV2-sub000/api/responses"
	shiftssvc "github.com/faacuromano/control-gastronomicoV2-sub000/internal/shifts"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

// Open handles POST /shifts/open.
func Open(svc *shiftssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, ok := middleware.TenantIDFrom(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant context"))
			return
		}
		userID, ok := middleware.UserIDFrom(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		shift, err := svc.Open(ctx, tenantID, userID.String(), time.Now().UTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shiftResponse(shift))
	}
}

// Close handles POST /shifts/close.
func Close(svc *shiftssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, ok := middleware.TenantIDFrom(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant context"))
			return
		}

		shift, err := svc.Close(ctx, tenantID, time.Now().UTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, shiftResponse(shift))
	}
}

func shiftResponse(shift *models.Shift) map[string]any {
	out := map[string]any{
		"id":            shift.ID,
		"business_date": shift.BusinessDate.Format("2006-01-02"),
		"opened_by":     shift.OpenedBy,
		"opened_at":     shift.OpenedAt,
	}
	if shift.ClosedAt != nil {
		out["closed_at"] = *shift.ClosedAt
	}
	return out
}
