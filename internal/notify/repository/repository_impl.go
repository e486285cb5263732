package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/notify/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, row *domain.Notification) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO notifications (id, vendor_id, type, title, body, payload, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		row.VendorID,
		row.Type,
		row.Title,
		row.Body,
		row.RawPayload,
		row.IsRead,
		row.CreatedAt,
	).Error
}

func (r *repo) ListByVendor(ctx context.Context, db *gorm.DB, vendorID snowflake.ID, limit int) ([]domain.Notification, error) {
	var rows []domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT id, vendor_id, type, title, body, payload, is_read, created_at
		 FROM notifications
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
