package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
)

// OrderItem is a point-in-time snapshot of a catalog entry. Catalog edits
// after placement must never change what the buyer agreed to pay.
type OrderItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	ImageURL       string    `json:"image_url,omitempty"`
	Category       string    `json:"category,omitempty"`
	Variant        string    `json:"variant"`
	Size           string    `json:"size"`
	Quantity       int       `json:"quantity"`
}

// OrderItems stores the ordered item snapshots inside a JSONB column.
type OrderItems []OrderItem

// Value serializes the items to JSON.
func (o OrderItems) Value() (driver.Value, error) {
	if o == nil {
		return json.Marshal(OrderItems{})
	}
	return json.Marshal(o)
}

// Scan decodes JSONB into the item list.
func (o *OrderItems) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, o)
}
