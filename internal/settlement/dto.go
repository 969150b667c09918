package settlement

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// PlaceOrderInput is the payload accepted by Place.
type PlaceOrderInput struct {
	Address types.ShippingAddress
	Method  enums.PaymentMethod
}

// PlaceResult carries the per-method response for a placed order.
type PlaceResult struct {
	OrderID     uuid.UUID           `json:"order_id"`
	Method      enums.PaymentMethod `json:"method"`
	AmountCents int64               `json:"amount_cents"`
	Currency    string              `json:"currency"`

	// Hosted checkout only.
	SessionURL string `json:"session_url,omitempty"`

	// Signed callback only.
	GatewayOrderID string `json:"gateway_order_id,omitempty"`
	KeyID          string `json:"key_id,omitempty"`
}

// ConfirmationPayload is the signed-callback confirmation relayed by the client.
type ConfirmationPayload struct {
	OrderID        uuid.UUID
	GatewayOrderID string
	PaymentID      string
	Signature      string
}
