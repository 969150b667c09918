package cart

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// View is the nested productID -> variant -> size -> quantity map returned to
// clients. Tombstoned lines (qty 0) are excluded.
type View map[string]map[string]map[string]int

// BuildView assembles the nested view from flat cart lines.
func BuildView(items []models.CartItem) View {
	view := View{}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		productKey := item.ProductID.String()
		variants, ok := view[productKey]
		if !ok {
			variants = map[string]map[string]int{}
			view[productKey] = variants
		}
		sizes, ok := variants[item.Variant]
		if !ok {
			sizes = map[string]int{}
			variants[item.Variant] = sizes
		}
		sizes[item.Size] = item.Quantity
	}
	return view
}
