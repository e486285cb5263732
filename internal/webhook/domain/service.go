package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Adapter verifies and parses a provider's webhook deliveries.
type Adapter interface {
	Provider() string
	// Verify authenticates the raw body against the transport headers.
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	// EventID derives the stable dedupe key for a delivery.
	EventID(payload []byte) string
	// Parse extracts the canonical sale event. Deliveries of types the
	// adapter does not understand return an event with its raw type and
	// no settlement payload.
	Parse(ctx context.Context, payload []byte) (*SaleEvent, error)
}

type Repository interface {
	// InsertEvent claims a delivery, returning false when the same
	// (provider, provider_event_id) pair was seen before.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*EventRecord, error)
	// Transition moves an event between states guarded by the expected
	// current state, returning false when the guard does not hold.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to EventStatus) (bool, error)
	MarkApplied(ctx context.Context, db *gorm.DB, id snowflake.ID, appliedAt time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) error
	List(ctx context.Context, db *gorm.DB, req ListEventsRequest) (ListEventsResponse, error)
	// RecoverStuck fails events that have sat in processing since before
	// the cutoff, freeing them for replay.
	RecoverStuck(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

// Service coordinates verification, dedupe, settlement and replay.
type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
	Replay(ctx context.Context, id snowflake.ID) error
	ListEvents(ctx context.Context, req ListEventsRequest) (ListEventsResponse, error)
	Health(ctx context.Context) HealthReport
}
