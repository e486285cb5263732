package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	webhookdomain "github.com/marketlane/settlo/internal/webhook/domain"
	"gorm.io/gorm"
)

// Settlement is the append-only record of one commission split.
// event_id is unique so a replayed event can never settle twice.
type Settlement struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	VendorID          snowflake.ID `json:"vendor_id" gorm:"not null;index"`
	EventID           snowflake.ID `json:"event_id" gorm:"not null"`
	OrderID           string       `json:"order_id" gorm:"type:text"`
	PaymentID         string       `json:"payment_id" gorm:"type:text;not null"`
	GrossAmount       int64        `json:"gross_amount" gorm:"not null"`
	CommissionRateBps int64        `json:"commission_rate_bps" gorm:"not null"`
	CommissionAmount  int64        `json:"commission_amount" gorm:"not null"`
	NetAmount         int64        `json:"net_amount" gorm:"not null"`
	Currency          string       `json:"currency" gorm:"type:text;not null"`
	OccurredAt        time.Time    `json:"occurred_at" gorm:"not null"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null"`
}

func (Settlement) TableName() string { return "settlements" }

type Repository interface {
	// InsertSettlement records the split, returning false when the event
	// was already settled.
	InsertSettlement(ctx context.Context, tx *gorm.DB, row *Settlement) (bool, error)
	ListByVendor(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, limit int) ([]Settlement, error)
}

// Service applies the financial effect of a completed sale.
type Service interface {
	// ApplyTx settles a completed sale inside the caller's transaction:
	// vendor counters, rank, commission split, achievements, notifications.
	ApplyTx(ctx context.Context, tx *gorm.DB, eventID snowflake.ID, sale *webhookdomain.SaleEvent) error
	ListByVendor(ctx context.Context, vendorID snowflake.ID, limit int) ([]Settlement, error)
}
