package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog row the storefront reads prices and display
// snapshots from. Catalog CRUD lives outside this service; orders copy the
// fields they need instead of referencing the row.
type Product struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string            `gorm:"column:name;type:text;not null"`
	Description   string            `gorm:"column:description;type:text"`
	Category      string            `gorm:"column:category;type:text"`
	Price         decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	VariantImages map[string]string `gorm:"column:variant_images;type:jsonb;serializer:json"`
	IsActive      bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
