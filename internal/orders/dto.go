package orders

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// List wraps a paginated page of orders plus the next page cursor.
type List struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
