package platforms

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/faacuromano/control-gastronomicoV2-sub000/api/middleware"
	"github.com/faacuromano/control-gastronomicoV2-sub000/api/responses"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/platform"
	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/products"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/logger"
)

type availabilityRequest struct {
	ExternalSKU string `json:"external_sku"`
	Available   bool   `json:"available"`
}

// SyncMenu handles POST /platforms/{platform}/menu/sync: pushes the mapped
// active catalog to the delivery platform.
func SyncMenu(registry *platform.Registry, repo products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenantID, ok := middleware.TenantIDFrom(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant context"))
			return
		}
		code, err := enums.ParsePlatformCode(chi.URLParam(r, "platform"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown platform"))
			return
		}
		adapter, err := registry.Get(code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		menu, err := products.BuildMenu(ctx, repo, tenantID, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if len(menu) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no products mapped for this platform"))
			return
		}

		result := adapter.PushMenu(ctx, menu)
		if !result.Success {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Err, "menu push rejected by platform"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"platform": code,
			"products": len(menu),
		})
	}
}

// UpdateAvailability handles PATCH /platforms/{platform}/availability.
func UpdateAvailability(registry *platform.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if _, ok := middleware.TenantIDFrom(ctx); !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant context"))
			return
		}
		code, err := enums.ParsePlatformCode(chi.URLParam(r, "platform"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown platform"))
			return
		}
		adapter, err := registry.Get(code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req availabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}
		if req.ExternalSKU == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "external_sku required"))
			return
		}

		result := adapter.UpdateAvailability(ctx, platform.AvailabilityUpdate{
			ExternalSKU: req.ExternalSKU,
			Available:   req.Available,
		})
		if !result.Success {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Err, "availability update rejected by platform"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"external_sku": req.ExternalSKU,
			"available":    req.Available,
		})
	}
}
