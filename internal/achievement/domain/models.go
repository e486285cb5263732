package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// StatField names a vendor statistic a predicate can inspect.
type StatField string

const (
	FieldTotalSales         StatField = "total_sales"
	FieldTotalRevenue       StatField = "total_revenue"
	FieldGamificationPoints StatField = "gamification_points"
	FieldAverageRatingCenti StatField = "average_rating_centi"
	FieldRank               StatField = "rank"
)

// StatsSnapshot is the post-settlement vendor state predicates run against.
type StatsSnapshot struct {
	TotalSales         int64
	TotalRevenue       int64
	GamificationPoints int64
	AverageRatingCenti int64
	Rank               string
}

// Predicate is a closed, declarative unlock condition. Implementations
// are data, not code: no user-supplied expressions are ever evaluated.
type Predicate interface {
	Satisfied(stats StatsSnapshot) bool
	Describe() string
}

// Definition is a static catalog entry.
type Definition struct {
	ID        string
	Name      string
	Points    int64
	Condition Predicate
}

// UnlockedAchievement records that a vendor earned an achievement.
// (vendor_id, achievement_id) is unique: unlocks happen at most once.
type UnlockedAchievement struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	VendorID      snowflake.ID `json:"vendor_id" gorm:"not null;index"`
	AchievementID string       `json:"achievement_id" gorm:"type:text;not null"`
	UnlockedAt    time.Time    `json:"unlocked_at" gorm:"not null"`
}

func (UnlockedAchievement) TableName() string { return "unlocked_achievements" }

type Repository interface {
	ListUnlockedIDs(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID) (map[string]struct{}, error)
	ListUnlocked(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]UnlockedAchievement, error)
	// InsertUnlocked claims the unlock, returning false when the vendor
	// already holds the achievement.
	InsertUnlocked(ctx context.Context, tx *gorm.DB, row *UnlockedAchievement) (bool, error)
}

// Engine evaluates the catalog and applies new unlocks inside the
// caller's settlement transaction.
type Engine interface {
	Apply(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID, stats StatsSnapshot) ([]Definition, error)
	ListUnlocked(ctx context.Context, vendorID snowflake.ID) ([]UnlockedAchievement, error)
	Catalog() []Definition
}
