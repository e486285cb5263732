package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventStatus is the processing state of a stored webhook event.
// Only the coordinator moves events between states.
type EventStatus string

const (
	StatusReceived   EventStatus = "received"
	StatusProcessing EventStatus = "processing"
	StatusApplied    EventStatus = "applied"
	StatusFailed     EventStatus = "failed"
)

// EventRecord is the durable copy of an inbound webhook delivery.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Status          EventStatus    `json:"status" gorm:"type:text;not null"`
	Error           string         `json:"error" gorm:"type:text"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	AppliedAt       *time.Time     `json:"applied_at"`
}

func (EventRecord) TableName() string { return "webhook_events" }

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentCancelled = "payment.cancelled"
)

// SaleEvent is the canonical payment event parsed by provider adapters.
type SaleEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	PaymentID       string
	OrderID         string
	VendorID        snowflake.ID
	Amount          int64
	Currency        string
	CustomerEmail   string
	OccurredAt      time.Time
	RawPayload      []byte
}

// ListEventsRequest filters the stored event log.
type ListEventsRequest struct {
	Provider  string
	Status    string
	EventType string
	PageToken string
	PageSize  int
}

// ListEventsResponse is one page of the stored event log.
type ListEventsResponse struct {
	Events        []EventRecord `json:"events"`
	NextPageToken string        `json:"next_page_token"`
	HasMore       bool          `json:"has_more"`
}

// HealthReport describes provider credential configuration and
// dependency reachability.
type HealthReport struct {
	Providers map[string]bool `json:"providers"`
	Database  bool            `json:"database"`
	Redis     *bool           `json:"redis,omitempty"`
}
