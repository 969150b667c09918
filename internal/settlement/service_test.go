package settlement

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func testAddress() types.ShippingAddress {
	return types.ShippingAddress{
		FirstName:  "Ada",
		LastName:   "Lane",
		Email:      "ada@example.com",
		Street:     "42 Loop Rd",
		City:       "Tulsa",
		State:      "OK",
		Country:    "US",
		PostalCode: "74104",
		Phone:      "5550001111",
	}
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		DeliveryFeeCents: 10,
		Currency:         "usd",
		SuccessURL:       "https://shop.example.com/orders",
		CancelURL:        "https://shop.example.com/cart",
	}
}

type fixture struct {
	cart     *stubCart
	orders   *stubOrders
	hosted   *stubHosted
	callback *stubCallback
	svc      Service
}

func newFixture(t *testing.T, product models.Product, lines []models.CartItem) *fixture {
	t.Helper()

	f := &fixture{
		cart:     &stubCart{lines: lines},
		orders:   &stubOrders{store: map[uuid.UUID]*models.Order{}},
		hosted:   &stubHosted{session: &Session{ID: "cs_1", URL: "https://pay.example.com/cs_1"}},
		callback: &stubCallback{gatewayOrderID: "order_gw_1", keyID: "key_pub"},
	}
	svc, err := NewService(
		f.cart,
		stubCatalog{products: []models.Product{product}},
		f.orders,
		f.hosted,
		f.callback,
		testCheckoutConfig(),
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func productAndLines(qty int) (models.Product, []models.CartItem) {
	product := models.Product{
		ID:       uuid.New(),
		Name:     "Crew Tee",
		Price:    decimal.NewFromInt(1),
		IsActive: true,
	}
	lines := []models.CartItem{
		{UserID: uuid.New(), ProductID: product.ID, Variant: "black", Size: "M", Quantity: qty},
	}
	return product, lines
}

func TestPlaceCODPersistsThenClearsCart(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(2)
	f := newFixture(t, product, lines)
	userID := lines[0].UserID

	result, err := f.svc.Place(context.Background(), userID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2*100 + 10 delivery fee
	if result.AmountCents != 210 {
		t.Fatalf("expected amount 210, got %d", result.AmountCents)
	}
	if !f.cart.cleared {
		t.Fatal("cod placement must clear the cart")
	}

	order := f.orders.mustGet(t, result.OrderID)
	if order.PaymentSettled {
		t.Fatal("cod orders settle on delivery, not placement")
	}
	if order.Status != enums.OrderStatusPlaced {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPriceCents != 100 {
		t.Fatalf("unexpected item snapshot %+v", order.Items)
	}
}

func TestPlaceRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	product, _ := productAndLines(1)
	f := newFixture(t, product, nil)

	_, err := f.svc.Place(context.Background(), uuid.New(), PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodCOD,
	})
	if err == nil {
		t.Fatal("expected error for empty cart")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error code: %v", err)
	}
}

func TestPlaceTreatsTombstoneOnlyCartAsEmpty(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(0)
	f := newFixture(t, product, lines)

	_, err := f.svc.Place(context.Background(), lines[0].UserID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodCOD,
	})
	if err == nil {
		t.Fatal("expected error for tombstone-only cart")
	}
}

func TestPlaceHostedCheckoutReturnsSessionURL(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(1)
	f := newFixture(t, product, lines)

	result, err := f.svc.Place(context.Background(), lines[0].UserID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodHostedCheckout,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SessionURL != "https://pay.example.com/cs_1" {
		t.Fatalf("unexpected session url %q", result.SessionURL)
	}
	if f.cart.cleared {
		t.Fatal("hosted checkout must not clear the cart before settlement")
	}
	f.orders.mustGet(t, result.OrderID)
}

func TestPlaceHostedCheckoutUnwindsOnGatewayError(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(1)
	f := newFixture(t, product, lines)
	f.hosted.err = errors.New("gateway down")

	_, err := f.svc.Place(context.Background(), lines[0].UserID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodHostedCheckout,
	})
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("unexpected error code: %v", err)
	}
	if len(f.orders.store) != 0 {
		t.Fatal("failed session must unwind the order")
	}
	if f.cart.cleared {
		t.Fatal("cart must survive a failed placement")
	}
}

func TestPlaceReportsFailedPersistenceAsInternal(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(1)
	f := newFixture(t, product, lines)
	f.orders.createErr = errors.New("database down")

	_, err := f.svc.Place(context.Background(), lines[0].UserID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodCOD,
	})
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("unexpected error code: %v", err)
	}
	if f.cart.cleared {
		t.Fatal("cart must survive a failed placement")
	}
}

func TestPlaceSignedCallbackRecordsGatewayOrder(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(1)
	f := newFixture(t, product, lines)

	result, err := f.svc.Place(context.Background(), lines[0].UserID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodSignedCallback,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.GatewayOrderID != "order_gw_1" || result.KeyID != "key_pub" {
		t.Fatalf("unexpected result %+v", result)
	}
	order := f.orders.mustGet(t, result.OrderID)
	if order.GatewayOrderID == nil || *order.GatewayOrderID != "order_gw_1" {
		t.Fatalf("gateway order id not recorded: %+v", order.GatewayOrderID)
	}
	if f.cart.cleared {
		t.Fatal("signed callback must not clear the cart before settlement")
	}
}

func TestPlaceSignedCallbackKeepsOrderOnGatewayError(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(1)
	f := newFixture(t, product, lines)
	f.callback.createErr = errors.New("gateway down")

	_, err := f.svc.Place(context.Background(), lines[0].UserID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodSignedCallback,
	})
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if len(f.orders.store) != 1 {
		t.Fatal("order must survive a failed gateway order creation")
	}
}

func TestConfirmHostedCheckoutIsIdempotent(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(1)
	f := newFixture(t, product, lines)

	result, err := f.svc.Place(context.Background(), lines[0].UserID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodHostedCheckout,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if err := f.svc.ConfirmHostedCheckout(context.Background(), result.OrderID); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if !f.orders.mustGet(t, result.OrderID).PaymentSettled {
		t.Fatal("expected settled order")
	}
	if !f.cart.cleared {
		t.Fatal("first confirmation must clear the cart")
	}

	f.cart.cleared = false
	if err := f.svc.ConfirmHostedCheckout(context.Background(), result.OrderID); err != nil {
		t.Fatalf("replay confirm: %v", err)
	}
	if f.cart.cleared {
		t.Fatal("replayed confirmation must be a no-op")
	}
}

func TestVerifySignedCallbackRejectsBadSignature(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(1)
	f := newFixture(t, product, lines)
	userID := lines[0].UserID

	result, err := f.svc.Place(context.Background(), userID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodSignedCallback,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	f.callback.verifyErr = pkgerrors.New(pkgerrors.CodeSignatureInvalid, "payment callback signature mismatch")
	err = f.svc.VerifySignedCallback(context.Background(), userID, ConfirmationPayload{
		OrderID:        result.OrderID,
		GatewayOrderID: result.GatewayOrderID,
		PaymentID:      "pay_1",
		Signature:      "bogus",
	})
	if err == nil {
		t.Fatal("expected signature error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeSignatureInvalid {
		t.Fatalf("unexpected error code: %v", err)
	}
	if f.orders.mustGet(t, result.OrderID).PaymentSettled {
		t.Fatal("tampered payload must not settle the order")
	}
}

func TestVerifySignedCallbackSettlesAndReplays(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(1)
	f := newFixture(t, product, lines)
	userID := lines[0].UserID

	result, err := f.svc.Place(context.Background(), userID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodSignedCallback,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	payload := ConfirmationPayload{
		OrderID:        result.OrderID,
		GatewayOrderID: result.GatewayOrderID,
		PaymentID:      "pay_1",
		Signature:      "good",
	}
	if err := f.svc.VerifySignedCallback(context.Background(), userID, payload); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !f.orders.mustGet(t, result.OrderID).PaymentSettled {
		t.Fatal("expected settled order")
	}
	if !f.cart.cleared {
		t.Fatal("settlement must clear the cart")
	}

	f.cart.cleared = false
	if err := f.svc.VerifySignedCallback(context.Background(), userID, payload); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if f.cart.cleared {
		t.Fatal("replayed confirmation must be a no-op")
	}
}

func TestVerifySignedCallbackRejectsForeignOrder(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(1)
	f := newFixture(t, product, lines)

	result, err := f.svc.Place(context.Background(), lines[0].UserID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodSignedCallback,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	err = f.svc.VerifySignedCallback(context.Background(), uuid.New(), ConfirmationPayload{
		OrderID:        result.OrderID,
		GatewayOrderID: result.GatewayOrderID,
		PaymentID:      "pay_1",
		Signature:      "good",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error code: %v", err)
	}
}

func TestCancelSignedCallback(t *testing.T) {
	t.Parallel()

	product, lines := productAndLines(1)
	f := newFixture(t, product, lines)
	userID := lines[0].UserID

	result, err := f.svc.Place(context.Background(), userID, PlaceOrderInput{
		Address: testAddress(),
		Method:  enums.PaymentMethodSignedCallback,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if err := f.svc.CancelSignedCallback(context.Background(), userID, result.OrderID); err != nil {
		t.Fatalf("cancel ack: %v", err)
	}
	if f.orders.mustGet(t, result.OrderID).PaymentSettled {
		t.Fatal("cancel ack must not mutate the order")
	}

	if _, err := f.orders.SettlePayment(context.Background(), result.OrderID); err != nil {
		t.Fatalf("settle: %v", err)
	}
	err = f.svc.CancelSignedCallback(context.Background(), userID, result.OrderID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidOperation {
		t.Fatalf("unexpected error code: %v", err)
	}
}

type stubCart struct {
	lines   []models.CartItem
	cleared bool
}

func (s *stubCart) Lines(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	active := make([]models.CartItem, 0, len(s.lines))
	for _, line := range s.lines {
		if line.Quantity > 0 {
			active = append(active, line)
		}
	}
	return active, nil
}

func (s *stubCart) Clear(ctx context.Context, userID uuid.UUID) error {
	s.cleared = true
	return nil
}

type stubCatalog struct {
	products []models.Product
}

func (s stubCatalog) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	return s.products, nil
}

type stubOrders struct {
	store     map[uuid.UUID]*models.Order
	createErr error
}

func (s *stubOrders) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	copied := *order
	s.store[order.ID] = &copied
	return order, nil
}

func (s *stubOrders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.store[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrders) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	order, ok := s.store[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if raw, ok := fields["gateway_order_id"]; ok {
		value := raw.(string)
		order.GatewayOrderID = &value
	}
	return nil
}

func (s *stubOrders) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.store, id)
	return nil
}

func (s *stubOrders) SettlePayment(ctx context.Context, id uuid.UUID) (bool, error) {
	order, ok := s.store[id]
	if !ok {
		return false, nil
	}
	if order.PaymentSettled || order.Status.IsTerminal() {
		return false, nil
	}
	order.PaymentSettled = true
	return true, nil
}

func (s *stubOrders) mustGet(t *testing.T, id uuid.UUID) *models.Order {
	t.Helper()
	order, ok := s.store[id]
	if !ok {
		t.Fatalf("order %s not found", id)
	}
	return order
}

type stubHosted struct {
	session *Session
	err     error
}

func (s *stubHosted) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

type stubCallback struct {
	gatewayOrderID string
	keyID          string
	createErr      error
	verifyErr      error
}

func (s *stubCallback) CreateOrder(ctx context.Context, req CallbackOrderRequest) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.gatewayOrderID, nil
}

func (s *stubCallback) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) error {
	return s.verifyErr
}

func (s *stubCallback) KeyID() string { return s.keyID }
