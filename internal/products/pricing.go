package products

import (
	"github.com/shopspring/decimal"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/enums"
)

// PriceForChannel returns the unit price a product sells at on the given
// channel. Delivery channels use the explicit delivery price when present,
// otherwise fall back to base price times (1 + markup); POS and waiter
// orders always use the base price. Results are rounded to cents.
func PriceForChannel(product *models.Product, channel enums.OrderChannel) decimal.Decimal {
	if product == nil {
		return decimal.Zero
	}
	if channel != enums.OrderChannelDeliveryApp {
		return product.BasePrice
	}
	if product.DeliveryPrice != nil {
		return *product.DeliveryPrice
	}
	if product.DeliveryMarkup != nil {
		factor := decimal.NewFromInt(1).Add(*product.DeliveryMarkup)
		return product.BasePrice.Mul(factor).Round(2)
	}
	return product.BasePrice
}
