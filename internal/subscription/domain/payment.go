package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type PlanSnapshot struct {
	PlanName    string `json:"plan_name"`
	BedCount    int    `json:"bed_count"`
	BranchCount int    `json:"branch_count"`
}

// PaymentRecord is immutable once appended. GatewayPaymentID is the idempotence key.
type PaymentRecord struct {
	GatewayPaymentID string       `json:"gateway_payment_id"`
	GatewayOrderID   string       `json:"gateway_order_id"`
	Amount           int64        `json:"amount"`
	Currency         string       `json:"currency"`
	Status           string       `json:"status"`
	Method           string       `json:"method"`
	Plan             PlanSnapshot `json:"plan"`
	PaidAt           time.Time    `json:"paid_at"`
}

// PaymentHistory is an append-only ordered list indexed by gateway payment id.
// The zero value is empty and ready to use.
type PaymentHistory struct {
	records []PaymentRecord
	index   map[string]int
}

// NewPaymentHistory rebuilds a history from stored records, keeping the first of any duplicate ids.
func NewPaymentHistory(records ...PaymentRecord) PaymentHistory {
	var h PaymentHistory
	for _, rec := range records {
		_ = h.Append(rec)
	}
	return h
}

func (h *PaymentHistory) Has(gatewayPaymentID string) bool {
	_, ok := h.index[normalizePaymentID(gatewayPaymentID)]
	return ok
}

// Append adds rec unless its gateway payment id is already recorded.
func (h *PaymentHistory) Append(rec PaymentRecord) error {
	key := normalizePaymentID(rec.GatewayPaymentID)
	if key == "" {
		return ErrInvalidPaymentRecord
	}
	if _, ok := h.index[key]; ok {
		return ErrDuplicatePayment
	}
	if h.index == nil {
		h.index = make(map[string]int)
	}
	rec.GatewayPaymentID = key
	h.index[key] = len(h.records)
	h.records = append(h.records, rec)
	return nil
}

// Records returns a copy in append order.
func (h PaymentHistory) Records() []PaymentRecord {
	out := make([]PaymentRecord, len(h.records))
	copy(out, h.records)
	return out
}

func (h PaymentHistory) Len() int { return len(h.records) }

// Since returns records appended at or after position n, in order.
func (h PaymentHistory) Since(n int) []PaymentRecord {
	if n < 0 {
		n = 0
	}
	if n >= len(h.records) {
		return nil
	}
	out := make([]PaymentRecord, len(h.records)-n)
	copy(out, h.records[n:])
	return out
}

func (h PaymentHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Records())
}

func (h *PaymentHistory) UnmarshalJSON(data []byte) error {
	var records []PaymentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	*h = NewPaymentHistory(records...)
	return nil
}

func normalizePaymentID(id string) string {
	return strings.TrimSpace(id)
}
