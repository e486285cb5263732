package service

import (
	"context"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/clock"
	"github.com/marketlane/settlo/internal/notify/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("notify.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) NotifyTx(ctx context.Context, tx *gorm.DB, n domain.Notification) error {
	if n.VendorID == 0 || n.Type == "" {
		return nil
	}

	n.ID = s.genID.Generate()
	n.CreatedAt = s.clock.Now()
	if n.Payload != nil {
		raw, err := json.Marshal(n.Payload)
		if err != nil {
			return err
		}
		n.RawPayload = datatypes.JSON(raw)
	} else {
		n.RawPayload = datatypes.JSON([]byte(`{}`))
	}

	if err := s.repo.Insert(ctx, tx, &n); err != nil {
		return err
	}

	s.log.Debug("notification recorded",
		zap.String("vendor_id", n.VendorID.String()),
		zap.String("type", string(n.Type)),
	)
	return nil
}

func (s *Service) ListByVendor(ctx context.Context, vendorID snowflake.ID, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	rows, err := s.repo.ListByVendor(ctx, s.db, vendorID, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if len(rows[i].RawPayload) > 0 {
			var payload map[string]any
			if err := json.Unmarshal(rows[i].RawPayload, &payload); err == nil {
				rows[i].Payload = payload
			}
		}
	}
	return rows, nil
}
