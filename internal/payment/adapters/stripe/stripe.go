package stripe

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/pgstay/internal/payment/adapters/notes"
	paymentdomain "github.com/smallbiznis/pgstay/internal/payment/domain"
)

const providerName = "stripe"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.GatewayAdapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Adapter{webhookSecret: secret}, nil
}

type Adapter struct {
	webhookSecret string
}

func (a *Adapter) Provider() string {
	return providerName
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	expected := sign(a.webhookSecret, timestamp, payload)

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

// SignPayload returns the v1 signature Stripe sends for payload at the unix
// timestamp at.
func SignPayload(secret string, payload []byte, at int64) string {
	return sign(secret, strconv.FormatInt(at, 10), payload)
}

func sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp + "."))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Parse reads succeeded payment intents and charges. Subscription details come
// from the object's metadata.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.CapturedEvent, error) {
	var event stripeEvent
	if err := decode(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	var object stripeObject
	switch strings.TrimSpace(event.Type) {
	case "payment_intent.succeeded", "charge.succeeded":
		if err := decode(event.Data.Object, &object); err != nil {
			return nil, paymentdomain.ErrInvalidPayload
		}
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
	if strings.TrimSpace(object.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	// Stripe emits both events for one payment; keying a charge by its
	// payment intent makes the two deliveries a single payment.
	paymentID, orderID := object.ID, ""
	if intent := strings.TrimSpace(object.PaymentIntent); intent != "" {
		paymentID, orderID = intent, object.ID
	}

	amount := object.AmountReceived
	if amount <= 0 {
		amount = object.Amount
	}
	captured := &paymentdomain.CapturedEvent{
		Provider:   providerName,
		EventID:    event.ID,
		PaymentID:  paymentID,
		OrderID:    orderID,
		Amount:     amount,
		Currency:   strings.ToUpper(strings.TrimSpace(object.Currency)),
		Method:     firstMethod(object.PaymentMethodTypes),
		Status:     strings.TrimSpace(object.Status),
		CapturedAt: timestamp(object.Created, event.Created),
	}
	if err := notes.Apply(captured, object.Metadata); err != nil {
		return nil, err
	}
	return captured, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

// stripeObject covers the fields shared by payment intents and charges.
type stripeObject struct {
	ID                 string         `json:"id"`
	Amount             int64          `json:"amount"`
	AmountReceived     int64          `json:"amount_received"`
	Currency           string         `json:"currency"`
	Status             string         `json:"status"`
	PaymentIntent      string         `json:"payment_intent"`
	PaymentMethodTypes []string       `json:"payment_method_types"`
	Created            int64          `json:"created"`
	Metadata           map[string]any `json:"metadata"`
}

func decode(raw []byte, out any) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	return decoder.Decode(out)
}

func firstMethod(types []string) string {
	if len(types) == 0 {
		return ""
	}
	return strings.TrimSpace(types[0])
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0).UTC()
}
