package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/settlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSettlement(ctx context.Context, tx *gorm.DB, row *domain.Settlement) (bool, error) {
	res := tx.WithContext(ctx).Exec(
		`INSERT INTO settlements (
			id, vendor_id, event_id, order_id, payment_id, gross_amount,
			commission_rate_bps, commission_amount, net_amount, currency, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`,
		row.ID,
		row.VendorID,
		row.EventID,
		row.OrderID,
		row.PaymentID,
		row.GrossAmount,
		row.CommissionRateBps,
		row.CommissionAmount,
		row.NetAmount,
		row.Currency,
		row.OccurredAt,
		row.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListByVendor(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, limit int) ([]domain.Settlement, error) {
	var rows []domain.Settlement
	err := db.WithContext(ctx).Raw(
		`SELECT id, vendor_id, event_id, order_id, payment_id, gross_amount,
			commission_rate_bps, commission_amount, net_amount, currency, occurred_at, created_at
		 FROM settlements
		 WHERE vendor_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		vendorID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
