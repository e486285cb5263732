package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/vendors/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Vendor, error) {
	var item domain.Vendor
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, rank, commission_rate_bps, total_sales, total_revenue,
			gamification_points, average_rating_centi, version, created_at, updated_at
		 FROM vendors
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Vendor, error) {
	var item domain.Vendor
	err := tx.WithContext(ctx).Raw(
		`SELECT id, name, email, rank, commission_rate_bps, total_sales, total_revenue,
			gamification_points, average_rating_centi, version, created_at, updated_at
		 FROM vendors
		 WHERE id = ?
		 FOR UPDATE`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vendor *domain.Vendor) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vendors (
			id, name, email, rank, commission_rate_bps, total_sales, total_revenue,
			gamification_points, average_rating_centi, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		vendor.ID,
		vendor.Name,
		vendor.Email,
		vendor.Rank,
		vendor.CommissionRateBps,
		vendor.TotalSales,
		vendor.TotalRevenue,
		vendor.GamificationPoints,
		vendor.AverageRatingCenti,
		vendor.Version,
		vendor.CreatedAt,
		vendor.UpdatedAt,
	).Error
}

func (r *repo) UpdateSettled(ctx context.Context, tx *gorm.DB, vendor *domain.Vendor) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE vendors
		 SET rank = ?, commission_rate_bps = ?, total_sales = ?, total_revenue = ?,
			 version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		vendor.Rank,
		vendor.CommissionRateBps,
		vendor.TotalSales,
		vendor.TotalRevenue,
		vendor.UpdatedAt,
		vendor.ID,
		vendor.Version,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleVendor
	}
	vendor.Version++
	return nil
}

func (r *repo) AddPoints(ctx context.Context, tx *gorm.DB, id snowflake.ID, delta int64) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE vendors
		 SET gamification_points = gamification_points + ?
		 WHERE id = ?`,
		delta,
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVendorNotFound
	}
	return nil
}

func (r *repo) Leaderboard(ctx context.Context, db *gorm.DB, by string, limit int) ([]domain.LeaderboardEntry, error) {
	orderBy := "gamification_points"
	switch by {
	case domain.LeaderboardBySales:
		orderBy = "total_sales"
	case domain.LeaderboardByRevenue:
		orderBy = "total_revenue"
	case domain.LeaderboardByPoints, "":
	default:
		return nil, domain.ErrInvalidVendor
	}

	var rows []domain.LeaderboardEntry
	err := db.WithContext(ctx).Raw(fmt.Sprintf(
		`SELECT id AS vendor_id, name, rank, total_sales, total_revenue, gamification_points
		 FROM vendors
		 ORDER BY %s DESC, id ASC
		 LIMIT ?`, orderBy),
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Position = i + 1
	}
	return rows, nil
}
