package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	TypeSaleSettled         NotificationType = "sale_settled"
	TypeRankPromoted        NotificationType = "rank_promoted"
	TypeAchievementUnlocked NotificationType = "achievement_unlocked"
)

// Notification is an in-app message for a vendor.
type Notification struct {
	ID         snowflake.ID     `json:"id" gorm:"primaryKey"`
	VendorID   snowflake.ID     `json:"vendor_id" gorm:"not null;index"`
	Type       NotificationType `json:"type" gorm:"type:text;not null"`
	Title      string           `json:"title" gorm:"type:text;not null"`
	Body       string           `json:"body" gorm:"type:text;not null"`
	Payload    map[string]any   `json:"payload" gorm:"-"`
	RawPayload datatypes.JSON   `json:"-" gorm:"column:payload;type:jsonb"`
	IsRead     bool             `json:"is_read" gorm:"not null"`
	CreatedAt  time.Time        `json:"created_at" gorm:"not null"`
}

func (Notification) TableName() string { return "notifications" }

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, row *Notification) error
	ListByVendor(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, limit int) ([]Notification, error)
}

type Service interface {
	// NotifyTx records the notification inside the caller's transaction
	// so it commits or rolls back with the settlement.
	NotifyTx(ctx context.Context, tx *gorm.DB, n Notification) error
	ListByVendor(ctx context.Context, vendorID snowflake.ID, limit int) ([]Notification, error)
}
