package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// PointsReason classifies why points were granted.
type PointsReason string

const (
	ReasonAchievement PointsReason = "achievement"
	ReasonAdjustment  PointsReason = "adjustment"
)

// PointsTransaction is one append-only grant of gamification points.
// (vendor_id, reason, ref_id) is unique so replays cannot double-credit.
type PointsTransaction struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	VendorID  snowflake.ID `json:"vendor_id" gorm:"not null;index"`
	Delta     int64        `json:"delta" gorm:"not null"`
	Reason    PointsReason `json:"reason" gorm:"type:text;not null"`
	RefID     string       `json:"ref_id" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

func (PointsTransaction) TableName() string { return "points_transactions" }

// VendorBalance pairs a vendor with its ledger sum, used for auditing
// the denormalized counter.
type VendorBalance struct {
	VendorID  snowflake.ID
	Counter   int64
	LedgerSum int64
}

type Repository interface {
	// InsertTransaction appends a grant, returning false when the same
	// (vendor, reason, ref) grant already exists.
	InsertTransaction(ctx context.Context, tx *gorm.DB, entry *PointsTransaction) (bool, error)
	SumByVendor(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) (int64, error)
	Balances(ctx context.Context, db *gorm.DB) ([]VendorBalance, error)
}

type Service interface {
	// Credit grants points inside the caller's transaction and bumps the
	// vendor counter. It is a no-op on duplicate (reason, ref) pairs.
	Credit(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID, delta int64, reason PointsReason, refID string) (bool, error)
}
