package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/pgstay/internal/payment/adapters/notes"
	paymentdomain "github.com/smallbiznis/pgstay/internal/payment/domain"
)

const (
	providerName    = "razorpay"
	signatureHeader = "X-Razorpay-Signature"
	eventCaptured   = "payment.captured"
)

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

// Verify checks the hex HMAC-SHA256 of the raw body.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(signatureHeader))
	if signature == "" {
		return paymentdomain.ErrInvalidSignature
	}
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(Sign(a.webhookSecret, payload))) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.CapturedEvent, error) {
	var event razorpayEvent
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.Event) != eventCaptured {
		return nil, paymentdomain.ErrEventIgnored
	}

	entity := event.Payload.Payment.Entity
	if strings.TrimSpace(entity.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	captured := &paymentdomain.CapturedEvent{
		Provider:   providerName,
		EventID:    strings.TrimSpace(event.ID),
		PaymentID:  strings.TrimSpace(entity.ID),
		OrderID:    strings.TrimSpace(entity.OrderID),
		Amount:     entity.Amount,
		Currency:   strings.ToUpper(strings.TrimSpace(entity.Currency)),
		Method:     strings.TrimSpace(entity.Method),
		Status:     strings.TrimSpace(entity.Status),
		CapturedAt: timestamp(entity.CreatedAt, event.CreatedAt),
	}
	if err := notes.Apply(captured, decodeNotes(entity.Notes)); err != nil {
		return nil, err
	}
	return captured, nil
}

// Sign returns the signature razorpay sends for payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type razorpayEvent struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	CreatedAt int64           `json:"created_at"`
	Payload   razorpayPayload `json:"payload"`
}

type razorpayPayload struct {
	Payment struct {
		Entity razorpayPayment `json:"entity"`
	} `json:"payment"`
}

type razorpayPayment struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Method    string          `json:"method"`
	CreatedAt int64           `json:"created_at"`
	Notes     json.RawMessage `json:"notes"`
}

// decodeNotes tolerates the empty array razorpay sends when a payment has no notes.
func decodeNotes(raw json.RawMessage) map[string]any {
	values := map[string]any{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&values); err != nil {
		return map[string]any{}
	}
	return values
}

func timestamp(primary, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0).UTC()
}
