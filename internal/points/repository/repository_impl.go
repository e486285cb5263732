package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/points/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTransaction(ctx context.Context, tx *gorm.DB, entry *domain.PointsTransaction) (bool, error) {
	res := tx.WithContext(ctx).Exec(
		`INSERT INTO points_transactions (id, vendor_id, delta, reason, ref_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (vendor_id, reason, ref_id) DO NOTHING`,
		entry.ID,
		entry.VendorID,
		entry.Delta,
		entry.Reason,
		entry.RefID,
		entry.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SumByVendor(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) (int64, error) {
	var sum int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(delta), 0)
		 FROM points_transactions
		 WHERE vendor_id = ?`,
		vendorID,
	).Scan(&sum).Error
	return sum, err
}

func (r *repo) Balances(ctx context.Context, db *gorm.DB) ([]domain.VendorBalance, error) {
	var rows []struct {
		VendorID  snowflake.ID
		Counter   int64
		LedgerSum int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT v.id AS vendor_id,
			v.gamification_points AS counter,
			COALESCE(SUM(p.delta), 0) AS ledger_sum
		 FROM vendors v
		 LEFT JOIN points_transactions p ON p.vendor_id = v.id
		 GROUP BY v.id, v.gamification_points`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.VendorBalance, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.VendorBalance{
			VendorID:  row.VendorID,
			Counter:   row.Counter,
			LedgerSum: row.LedgerSum,
		})
	}
	return out, nil
}
