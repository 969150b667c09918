package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type settlementConfirmer interface {
	ConfirmHostedCheckout(ctx context.Context, orderID uuid.UUID) error
}

type Service struct {
	settlement settlementConfirmer
}

func NewService(confirmer settlementConfirmer) (*Service, error) {
	if confirmer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	return &Service{settlement: confirmer}, nil
}

// HandleEvent settles hosted-checkout orders when their session completes.
// Unrecognized event types are acknowledged without action.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		orderID, err := orderIDFromSession(&session)
		if err != nil {
			return err
		}
		return s.settlement.ConfirmHostedCheckout(ctx, orderID)
	default:
		return nil
	}
}

func orderIDFromSession(session *stripe.CheckoutSession) (uuid.UUID, error) {
	if session == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session is required")
	}
	raw := session.ClientReferenceID
	if raw == "" {
		raw = session.Metadata["order_id"]
	}
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id missing from session")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id in session")
	}
	return orderID, nil
}
