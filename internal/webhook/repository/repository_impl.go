package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/webhook/domain"
	"github.com/marketlane/settlo/pkg/db/pagination"
	"gorm.io/gorm"
)

const defaultPageSize = 20

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO webhook_events (
			id, provider, provider_event_id, event_type, payload, status, error, received_at, applied_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.Payload,
		event.Status,
		event.Error,
		event.ReceivedAt,
		event.AppliedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, event_type, payload, status, error, received_at, applied_at
		 FROM webhook_events
		 WHERE provider = ? AND provider_event_id = ?
		 LIMIT 1`,
		provider,
		providerEventID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, event_type, payload, status, error, received_at, applied_at
		 FROM webhook_events
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

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.EventStatus) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET status = ?
		 WHERE id = ? AND status = ?`,
		to,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkApplied(ctx context.Context, db *gorm.DB, id snowflake.ID, appliedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET status = ?, error = '', applied_at = ?
		 WHERE id = ?`,
		domain.StatusApplied,
		appliedAt,
		id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET status = ?, error = ?
		 WHERE id = ?`,
		domain.StatusFailed,
		reason,
		id,
	).Error
}

func (r *repo) RecoverStuck(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET status = ?, error = 'processing timed out'
		 WHERE status = ? AND received_at < ?`,
		domain.StatusFailed,
		domain.StatusProcessing,
		cutoff,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListEventsRequest) (domain.ListEventsResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 250 {
		pageSize = defaultPageSize
	}

	query := db.WithContext(ctx).Table("webhook_events").
		Select("id, provider, provider_event_id, event_type, payload, status, error, received_at, applied_at")

	if provider := strings.TrimSpace(req.Provider); provider != "" {
		query = query.Where("provider = ?", strings.ToLower(provider))
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if eventType := strings.TrimSpace(req.EventType); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListEventsResponse{}, domain.ErrInvalidEvent
		}
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListEventsResponse{}, domain.ErrInvalidEvent
		}
		query = query.Where("id < ?", cursorID)
	}

	var rows []*domain.EventRecord
	if err := query.Order("id DESC").Limit(pageSize + 1).Scan(&rows).Error; err != nil {
		return domain.ListEventsResponse{}, err
	}

	rows, pageInfo := pagination.BuildCursorPageInfo(rows, pageSize, func(row *domain.EventRecord) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:         row.ID.String(),
			ReceivedAt: row.ReceivedAt.UTC().Format(time.RFC3339Nano),
		})
		return token
	})

	out := domain.ListEventsResponse{
		Events:  make([]domain.EventRecord, 0, len(rows)),
		HasMore: pageInfo.HasMore,
	}
	if pageInfo.HasMore {
		out.NextPageToken = pageInfo.NextPageToken
	}
	for _, row := range rows {
		out.Events = append(out.Events, *row)
	}
	return out, nil
}
