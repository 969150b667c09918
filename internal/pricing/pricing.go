package pricing

import (
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var centsPerUnit = decimal.NewFromInt(100)

// UnitPriceCents converts a catalog price to minor units.
func UnitPriceCents(product models.Product) int64 {
	return product.Price.Mul(centsPerUnit).Round(0).IntPart()
}

// ComputeAmountCents totals the cart lines against the catalog and adds the
// delivery fee. Deterministic for a given cart and catalog. Tombstoned lines
// are skipped; a priced line without a catalog entry is an error, never zero.
func ComputeAmountCents(lines []models.CartItem, products map[uuid.UUID]models.Product, deliveryFeeCents int64) (int64, error) {
	if deliveryFeeCents < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee cannot be negative")
	}

	total := deliveryFeeCents
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		product, ok := products[line.ProductID]
		if !ok {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("no price for product %s", line.ProductID))
		}
		total += UnitPriceCents(product) * int64(line.Quantity)
	}
	return total, nil
}

// ExpandItems produces the immutable order item snapshots for the cart lines.
func ExpandItems(lines []models.CartItem, products map[uuid.UUID]models.Product) (types.OrderItems, error) {
	items := make(types.OrderItems, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		product, ok := products[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("no catalog entry for product %s", line.ProductID))
		}
		items = append(items, types.OrderItem{
			ProductID:      product.ID,
			Name:           product.Name,
			Description:    product.Description,
			UnitPriceCents: UnitPriceCents(product),
			ImageURL:       product.VariantImages[line.Variant],
			Category:       product.Category,
			Variant:        line.Variant,
			Size:           line.Size,
			Quantity:       line.Quantity,
		})
	}
	return items, nil
}
