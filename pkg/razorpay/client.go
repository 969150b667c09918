package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	errLoggerRequired    = errors.New("razorpay logger is required")
)

// OrderCreateParams describes the gateway order handle to create.
type OrderCreateParams struct {
	AmountCents int64
	Currency    string
	Receipt     string
}

// Client wraps the Razorpay SDK with centralized logging and error mapping.
type Client struct {
	sdk       *razorpay.Client
	keyID     string
	keySecret string
	logger    *logger.Logger
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}

	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	c := &Client{
		sdk:       razorpay.NewClient(keyID, keySecret),
		keyID:     keyID,
		keySecret: keySecret,
		logger:    logg,
	}

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// KeyID returns the public key id clients use to open the checkout widget.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrder creates a gateway order handle and returns its id.
func (c *Client) CreateOrder(ctx context.Context, params OrderCreateParams) (string, error) {
	if params.AmountCents <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "gateway order amount must be positive")
	}
	if strings.TrimSpace(params.Receipt) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "gateway order receipt is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "USD"
	}

	data := map[string]interface{}{
		"amount":   params.AmountCents,
		"currency": currency,
		"receipt":  params.Receipt,
	}

	c.log(ctx, "request", "create_order", map[string]any{
		"receipt":  params.Receipt,
		"amount":   params.AmountCents,
		"currency": currency,
	})

	resp, err := c.sdk.Order.Create(data, nil)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay create order failed")
	}

	gatewayOrderID, _ := resp["id"].(string)
	if gatewayOrderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "razorpay order response missing id")
	}

	c.log(ctx, "response", "create_order", map[string]any{"gateway_order_id": gatewayOrderID})
	return gatewayOrderID, nil
}

// VerifyPaymentSignature checks the callback signature the gateway computed over
// "<gateway_order_id>|<payment_id>" with the account secret.
func (c *Client) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "razorpay client is nil")
	}
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return pkgerrors.New(pkgerrors.CodeSignatureInvalid, "payment callback is missing signature fields")
	}

	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return pkgerrors.New(pkgerrors.CodeSignatureInvalid, "payment callback signature mismatch")
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "signature", "token", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
