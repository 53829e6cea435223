package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
)

// SKUResolution pairs each requested external SKU with its internal product.
type SKUResolution struct {
	Products map[string]*models.Product
	Missing  []string
}

// ResolveSKUs batch-maps external SKUs to internal products in exactly two
// queries (mappings, then products) regardless of cart size. Unmapped SKUs
// are returned in Missing rather than silently dropped; the caller decides
// whether missing lines reject the whole order.
func ResolveSKUs(ctx context.Context, repo Repository, tenantID uuid.UUID, code enums.PlatformCode, skus []string) (*SKUResolution, error) {
	resolution := &SKUResolution{Products: map[string]*models.Product{}}
	if len(skus) == 0 {
		return resolution, nil
	}

	mappings, err := repo.FindSKUMappings(ctx, tenantID, code, skus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sku mappings")
	}

	productIDBySKU := map[string]uuid.UUID{}
	productIDs := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		productIDBySKU[m.ExternalSKU] = m.ProductID
		productIDs = append(productIDs, m.ProductID)
	}

	productRows, err := repo.FindByIDs(ctx, tenantID, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load mapped products")
	}
	byID := map[uuid.UUID]*models.Product{}
	for i := range productRows {
		byID[productRows[i].ID] = &productRows[i]
	}

	for _, sku := range skus {
		productID, mapped := productIDBySKU[sku]
		if !mapped {
			resolution.Missing = append(resolution.Missing, sku)
			continue
		}
		product, ok := byID[productID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeIntegrity, fmt.Sprintf("sku %s maps to missing product %s", sku, productID))
		}
		resolution.Products[sku] = product
	}
	return resolution, nil
}
