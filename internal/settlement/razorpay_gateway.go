package settlement

import (
	"context"
	"fmt"

	pkgrazorpay "github.com/angelmondragon/storefront-backend/pkg/razorpay"
)

type razorpayGateway struct {
	client *pkgrazorpay.Client
}

// NewRazorpayGateway adapts the Razorpay client to the signed-callback interface.
func NewRazorpayGateway(client *pkgrazorpay.Client) (SignedCallbackGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("razorpay client required")
	}
	return &razorpayGateway{client: client}, nil
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, req CallbackOrderRequest) (string, error) {
	return g.client.CreateOrder(ctx, pkgrazorpay.OrderCreateParams{
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
	})
}

func (g *razorpayGateway) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) error {
	return g.client.VerifyPaymentSignature(gatewayOrderID, paymentID, signature)
}

func (g *razorpayGateway) KeyID() string {
	return g.client.KeyID()
}
