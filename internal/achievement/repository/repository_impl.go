package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/achievement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListUnlockedIDs(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID) (map[string]struct{}, error) {
	var ids []string
	err := tx.WithContext(ctx).Raw(
		`SELECT achievement_id
		 FROM unlocked_achievements
		 WHERE vendor_id = ?`,
		vendorID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *repo) ListUnlocked(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) ([]domain.UnlockedAchievement, error) {
	var rows []domain.UnlockedAchievement
	err := db.WithContext(ctx).Raw(
		`SELECT id, vendor_id, achievement_id, unlocked_at
		 FROM unlocked_achievements
		 WHERE vendor_id = ?
		 ORDER BY unlocked_at ASC, id ASC`,
		vendorID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertUnlocked(ctx context.Context, tx *gorm.DB, row *domain.UnlockedAchievement) (bool, error) {
	res := tx.WithContext(ctx).Exec(
		`INSERT INTO unlocked_achievements (id, vendor_id, achievement_id, unlocked_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (vendor_id, achievement_id) DO NOTHING`,
		row.ID,
		row.VendorID,
		row.AchievementID,
		row.UnlockedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
