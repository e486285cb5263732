package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Vendor, error)
	// FindForUpdate locks the vendor row for the duration of the
	// surrounding transaction.
	FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Vendor, error)
	Insert(ctx context.Context, db *gorm.DB, vendor *Vendor) error
	// UpdateSettled persists the post-settlement vendor state guarded by
	// the optimistic version counter.
	UpdateSettled(ctx context.Context, tx *gorm.DB, vendor *Vendor) error
	AddPoints(ctx context.Context, tx *gorm.DB, id snowflake.ID, delta int64) error
	Leaderboard(ctx context.Context, db *gorm.DB, by string, limit int) ([]LeaderboardEntry, error)
}
