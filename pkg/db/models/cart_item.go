package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of a user's cart, keyed by the flat composite
// (user, product, variant, size) path. A zero quantity is retained as a
// tombstone; readers treat it as absent.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_items_path,priority:1"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_items_path,priority:2"`
	Variant   string    `gorm:"column:variant;type:text;not null;uniqueIndex:idx_cart_items_path,priority:3"`
	Size      string    `gorm:"column:size;type:text;not null;uniqueIndex:idx_cart_items_path,priority:4"`
	Quantity  int       `gorm:"column:quantity;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
