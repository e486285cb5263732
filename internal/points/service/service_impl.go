package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/clock"
	"github.com/marketlane/settlo/internal/points/domain"
	vendordomain "github.com/marketlane/settlo/internal/vendors/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	VendorRepo vendordomain.Repository
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	vendorRepo vendordomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("points.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		vendorRepo: p.VendorRepo,
	}
}

func (s *Service) Credit(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID, delta int64, reason domain.PointsReason, refID string) (bool, error) {
	refID = strings.TrimSpace(refID)
	if vendorID == 0 || delta == 0 || refID == "" {
		return false, nil
	}

	entry := &domain.PointsTransaction{
		ID:        s.genID.Generate(),
		VendorID:  vendorID,
		Delta:     delta,
		Reason:    reason,
		RefID:     refID,
		CreatedAt: s.clock.Now(),
	}

	inserted, err := s.repo.InsertTransaction(ctx, tx, entry)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}

	if err := s.vendorRepo.AddPoints(ctx, tx, vendorID, delta); err != nil {
		return false, err
	}

	s.log.Debug("points credited",
		zap.String("vendor_id", vendorID.String()),
		zap.Int64("delta", delta),
		zap.String("reason", string(reason)),
		zap.String("ref_id", refID),
	)
	return true, nil
}
