package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type cartStore interface {
	Lines(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type catalogReader interface {
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type orderStore interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	SettlePayment(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service is the payment settlement engine. It owns order creation across the
// three payment paths and the idempotent settlement confirmations.
type Service interface {
	Place(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*PlaceResult, error)
	ConfirmHostedCheckout(ctx context.Context, orderID uuid.UUID) error
	VerifySignedCallback(ctx context.Context, userID uuid.UUID, payload ConfirmationPayload) error
	CancelSignedCallback(ctx context.Context, userID, orderID uuid.UUID) error
}

type service struct {
	cart     cartStore
	catalog  catalogReader
	orders   orderStore
	hosted   HostedCheckoutGateway
	callback SignedCallbackGateway
	cfg      config.CheckoutConfig
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
}

// NewService builds the settlement engine.
func NewService(
	cart cartStore,
	catalog catalogReader,
	orders orderStore,
	hosted HostedCheckoutGateway,
	callback SignedCallbackGateway,
	cfg config.CheckoutConfig,
	logg *logger.Logger,
	settlementMetrics *metrics.SettlementMetrics,
) (Service, error) {
	if cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if hosted == nil {
		return nil, fmt.Errorf("hosted checkout gateway required")
	}
	if callback == nil {
		return nil, fmt.Errorf("signed callback gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cart:     cart,
		catalog:  catalog,
		orders:   orders,
		hosted:   hosted,
		callback: callback,
		cfg:      cfg,
		logg:     logg,
		metrics:  settlementMetrics,
	}, nil
}

// Place expands the cart into an order and runs the method-specific protocol.
func (s *service) Place(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*PlaceResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := input.Address.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	lines, err := s.cart.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	products, err := s.loadCatalog(ctx, lines)
	if err != nil {
		return nil, err
	}

	items, err := pricing.ExpandItems(lines, products)
	if err != nil {
		return nil, err
	}
	amount, err := pricing.ComputeAmountCents(lines, products, s.cfg.DeliveryFeeCents)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: input.Address,
		AmountCents:     amount,
		Currency:        s.cfg.Currency,
		PaymentMethod:   input.Method,
		Status:          enums.OrderStatusPlaced,
	}

	if _, err := s.orders.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}
	s.metrics.IncPlaced(input.Method.String())

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	result := &PlaceResult{
		OrderID:     order.ID,
		Method:      input.Method,
		AmountCents: amount,
		Currency:    s.cfg.Currency,
	}

	switch input.Method {
	case enums.PaymentMethodCOD:
		// Cash settles on delivery; the order is durable, clear the cart now.
		s.clearCart(ctx, userID)
		s.logg.Info(ctx, "cod order placed")
		return result, nil

	case enums.PaymentMethodHostedCheckout:
		sess, err := s.hosted.CreateSession(ctx, SessionRequest{
			OrderID:          order.ID.String(),
			Items:            items,
			DeliveryFeeCents: s.cfg.DeliveryFeeCents,
			Currency:         s.cfg.Currency,
		})
		if err != nil {
			// No redirect target means the order never happened.
			if delErr := s.orders.Delete(ctx, order.ID); delErr != nil {
				s.logg.Error(ctx, "unwind of failed checkout order", delErr)
			}
			s.metrics.IncUnwound(input.Method.String())
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create hosted checkout session")
		}
		result.SessionURL = sess.URL
		s.logg.Info(ctx, "hosted checkout session created")
		return result, nil

	case enums.PaymentMethodSignedCallback:
		gatewayOrderID, err := s.callback.CreateOrder(ctx, CallbackOrderRequest{
			AmountCents: amount,
			Currency:    s.cfg.Currency,
			Receipt:     order.ID.String(),
		})
		if err != nil {
			// The order stays placed and unsettled for retry or audit.
			s.metrics.IncFailed(input.Method.String())
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway order")
		}
		if err := s.orders.UpdateFields(ctx, order.ID, map[string]any{
			"gateway_order_id": gatewayOrderID,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record gateway order id")
		}
		result.GatewayOrderID = gatewayOrderID
		result.KeyID = s.callback.KeyID()
		s.logg.Info(ctx, "signed callback order created")
		return result, nil

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
}

// ConfirmHostedCheckout settles a hosted checkout order. Driven by the gateway
// webhook; replays are accepted silently.
func (s *service) ConfirmHostedCheckout(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentMethod != enums.PaymentMethodHostedCheckout {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "order is not a hosted checkout order")
	}

	applied, err := s.orders.SettlePayment(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payment")
	}
	if !applied {
		return nil
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.clearCart(ctx, order.UserID)
	s.metrics.IncSettled(order.PaymentMethod.String())
	s.logg.Info(ctx, "hosted checkout payment settled")
	return nil
}

// VerifySignedCallback validates the relayed confirmation and settles on a
// genuine signature. A tampered payload leaves the order untouched.
func (s *service) VerifySignedCallback(ctx context.Context, userID uuid.UUID, payload ConfirmationPayload) error {
	order, err := s.loadOrder(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentMethod != enums.PaymentMethodSignedCallback {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "order is not a signed callback order")
	}
	if order.GatewayOrderID == nil || *order.GatewayOrderID != payload.GatewayOrderID {
		return pkgerrors.New(pkgerrors.CodeSignatureInvalid, "gateway order mismatch")
	}

	if err := s.callback.VerifyPaymentSignature(payload.GatewayOrderID, payload.PaymentID, payload.Signature); err != nil {
		s.metrics.IncFailed(order.PaymentMethod.String())
		return err
	}

	applied, err := s.orders.SettlePayment(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payment")
	}
	if !applied {
		return nil
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.clearCart(ctx, order.UserID)
	s.metrics.IncSettled(order.PaymentMethod.String())
	s.logg.Info(ctx, "signed callback payment settled")
	return nil
}

// CancelSignedCallback acknowledges a dismissed checkout widget. It mutates
// nothing; the order stays placed and unsettled.
func (s *service) CancelSignedCallback(ctx context.Context, userID, orderID uuid.UUID) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentSettled {
		return pkgerrors.New(pkgerrors.CodeInvalidOperation, "payment is already settled")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) loadCatalog(ctx context.Context, lines []models.CartItem) (map[uuid.UUID]models.Product, error) {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	products, err := s.catalog.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}

	out := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		out[product.ID] = product
	}
	return out, nil
}

// clearCart runs after durable persistence only. A failure here leaves a stale
// cart, not a broken order, so it is logged and swallowed.
func (s *service) clearCart(ctx context.Context, userID uuid.UUID) {
	if err := s.cart.Clear(ctx, userID); err != nil {
		s.logg.Error(ctx, "clear cart after settlement", err)
	}
}
