package products

import (
	"context"

	"github.com/google/uuid"

	"github.com/faacuromano/control-gastronomicoV2-sub000/internal/platform"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
	pkgerrors "github.com/faacuromano/control-gastronomicoV2-sub000/pkg/errors"
)

// BuildMenu assembles the platform menu from the active catalog. Only
// products with a SKU mapping for the platform are included; the platform
// cannot address anything else.
func BuildMenu(ctx context.Context, repo Repository, tenantID uuid.UUID, code enums.PlatformCode) ([]platform.MenuProduct, error) {
	mappings, err := repo.ListSKUMappings(ctx, tenantID, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sku mappings")
	}
	if len(mappings) == 0 {
		return nil, nil
	}

	skuByProduct := map[uuid.UUID]string{}
	productIDs := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		skuByProduct[m.ProductID] = m.ExternalSKU
		productIDs = append(productIDs, m.ProductID)
	}

	productRows, err := repo.FindByIDs(ctx, tenantID, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load mapped products")
	}

	menu := make([]platform.MenuProduct, 0, len(productRows))
	for i := range productRows {
		product := &productRows[i]
		sku, ok := skuByProduct[product.ID]
		if !ok {
			continue
		}
		menu = append(menu, platform.MenuProduct{
			ExternalSKU: sku,
			Name:        product.Name,
			Category:    product.Category,
			Price:       PriceForChannel(product, enums.OrderChannelDeliveryApp),
			Available:   product.Active,
		})
	}
	return menu, nil
}
