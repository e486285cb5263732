package moneroo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/webhook/domain"
	"github.com/marketlane/settlo/internal/webhook/signature"
)

const providerName = "moneroo"

// Adapter handles Moneroo webhook deliveries.
type Adapter struct {
	webhookSecret string
}

func NewAdapter(webhookSecret string) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(webhookSecret)}
}

func (a *Adapter) Provider() string { return providerName }

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sig := strings.TrimSpace(headers.Get("X-Moneroo-Signature"))
	if sig == "" {
		sig = strings.TrimSpace(headers.Get("X-Signature"))
	}
	if !signature.Verify(payload, sig, a.webhookSecret) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// EventID derives the dedupe key. Moneroo deliveries carry no event id
// of their own, so the key is event_type plus payment id, falling back
// to a digest of the body when neither parses.
func (a *Adapter) EventID(payload []byte) string {
	var event monerooEvent
	if err := json.Unmarshal(payload, &event); err == nil {
		eventType := strings.TrimSpace(event.EventType)
		paymentID := strings.TrimSpace(event.Data.PaymentID)
		if eventType != "" && paymentID != "" {
			return eventType + ":" + paymentID
		}
	}
	sum := sha256.Sum256(payload)
	return "raw:" + hex.EncodeToString(sum[:])
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.SaleEvent, error) {
	var event monerooEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	eventType := strings.TrimSpace(event.EventType)
	if eventType == "" {
		return nil, domain.ErrInvalidEvent
	}

	out := &domain.SaleEvent{
		Provider:        providerName,
		ProviderEventID: a.EventID(payload),
		Type:            eventType,
		PaymentID:       strings.TrimSpace(event.Data.PaymentID),
		OrderID:         strings.TrimSpace(event.Data.Metadata.OrderID),
		Currency:        strings.ToUpper(strings.TrimSpace(event.Data.Currency)),
		CustomerEmail:   strings.TrimSpace(event.Data.Customer.Email),
		Amount:          event.Data.Amount,
		OccurredAt:      parseTimestamp(event.Data.PaidAt),
		RawPayload:      payload,
	}

	if vendorID := strings.TrimSpace(event.Data.Metadata.VendorID); vendorID != "" {
		parsed, err := snowflake.ParseString(vendorID)
		if err != nil {
			return nil, domain.ErrInvalidEvent
		}
		out.VendorID = parsed
	}

	switch eventType {
	case domain.EventTypePaymentCompleted:
		if out.PaymentID == "" || out.Amount <= 0 || out.Currency == "" || out.VendorID == 0 {
			return nil, domain.ErrInvalidEvent
		}
	case domain.EventTypePaymentFailed, domain.EventTypePaymentCancelled:
		if out.PaymentID == "" {
			return nil, domain.ErrInvalidEvent
		}
	default:
		// Unknown types pass through so the coordinator can record a no-op.
	}

	return out, nil
}

type monerooEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		PaymentID string `json:"payment_id"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
		PaidAt   string `json:"paid_at"`
		Metadata struct {
			OrderID  string `json:"order_id"`
			VendorID string `json:"vendor_id"`
		} `json:"metadata"`
	} `json:"data"`
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC()
	}
	return time.Time{}
}
