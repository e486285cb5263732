package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Vendor is the settlement counterparty. Rank and commission rate are
// derived from lifetime sales and only move forward.
type Vendor struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	Name               string       `json:"name" gorm:"type:text;not null"`
	Email              string       `json:"email" gorm:"type:text;not null"`
	Rank               string       `json:"rank" gorm:"type:text;not null"`
	CommissionRateBps  int64        `json:"commission_rate_bps" gorm:"not null"`
	TotalSales         int64        `json:"total_sales" gorm:"not null"`
	TotalRevenue       int64        `json:"total_revenue" gorm:"not null"`
	GamificationPoints int64        `json:"gamification_points" gorm:"not null"`
	AverageRatingCenti int64        `json:"average_rating_centi" gorm:"not null"`
	Version            int64        `json:"version" gorm:"not null"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"not null"`
}

func (Vendor) TableName() string { return "vendors" }

// LeaderboardEntry is one row of the vendor leaderboard.
type LeaderboardEntry struct {
	Position           int          `json:"position"`
	VendorID           snowflake.ID `json:"vendor_id"`
	Name               string       `json:"name"`
	Rank               string       `json:"rank"`
	TotalSales         int64        `json:"total_sales"`
	TotalRevenue       int64        `json:"total_revenue"`
	GamificationPoints int64        `json:"gamification_points"`
}

// VendorStats is the vendor detail view with rank progress.
type VendorStats struct {
	Vendor          Vendor `json:"vendor"`
	NextRank        string `json:"next_rank,omitempty"`
	SalesToNextRank int64  `json:"sales_to_next_rank"`
}

const (
	LeaderboardByPoints  = "points"
	LeaderboardBySales   = "sales"
	LeaderboardByRevenue = "revenue"
)
