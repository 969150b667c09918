package settlement

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// SessionRequest carries everything the hosted checkout page needs.
type SessionRequest struct {
	OrderID          string
	Items            types.OrderItems
	DeliveryFeeCents int64
	Currency         string
}

// Session is the redirect handle returned by the hosted gateway.
type Session struct {
	ID  string
	URL string
}

// HostedCheckoutGateway creates redirect sessions for hosted checkout orders.
type HostedCheckoutGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// CallbackOrderRequest describes the gateway order handle for the
// signed-callback flow.
type CallbackOrderRequest struct {
	AmountCents int64
	Currency    string
	Receipt     string
}

// SignedCallbackGateway creates gateway order handles and validates the
// signatures the client relays back.
type SignedCallbackGateway interface {
	CreateOrder(ctx context.Context, req CallbackOrderRequest) (string, error)
	VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) error
	KeyID() string
}
