package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the append-only record produced by the settlement engine.
// Status, refunded, estimated delivery and the payment-settled flag are the
// only fields that may change after creation, each through a targeted update.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Items             types.OrderItems      `gorm:"column:items;type:jsonb;serializer:json;not null"`
	ShippingAddress   types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	AmountCents       int64                 `gorm:"column:amount_cents;not null"`
	Currency          string                `gorm:"column:currency;type:text;not null;default:'usd'"`
	PaymentMethod     enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	PaymentSettled    bool                  `gorm:"column:payment_settled;not null;default:false"`
	Status            enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'placed'"`
	Refunded          bool                  `gorm:"column:refunded;not null;default:false"`
	GatewayOrderID    *string               `gorm:"column:gateway_order_id;index"`
	EstimatedDelivery *time.Time            `gorm:"column:estimated_delivery"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
