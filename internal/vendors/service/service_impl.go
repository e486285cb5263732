package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/cache"
	"github.com/marketlane/settlo/internal/clock"
	"github.com/marketlane/settlo/internal/commission"
	"github.com/marketlane/settlo/internal/vendors/domain"
	dbpkg "github.com/marketlane/settlo/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultLeaderboardLimit = 10

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Leaderboard *cache.LeaderboardCache `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	leaderboard *cache.LeaderboardCache
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("vendor.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		leaderboard: p.Leaderboard,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateVendorRequest) (*domain.Vendor, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidVendor
	}

	now := s.clock.Now()
	vendor := &domain.Vendor{
		ID:                s.genID.Generate(),
		Name:              name,
		Email:             email,
		Rank:              string(commission.RankBronze),
		CommissionRateBps: commission.RateBps(commission.RankBronze),
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Insert(ctx, s.db, vendor); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrVendorEmailTaken
		}
		return nil, err
	}

	s.log.Info("vendor created",
		zap.String("vendor_id", vendor.ID.String()),
		zap.String("rank", vendor.Rank),
	)
	return vendor, nil
}

func (s *Service) Stats(ctx context.Context, id snowflake.ID) (*domain.VendorStats, error) {
	vendor, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, domain.ErrVendorNotFound
	}

	stats := &domain.VendorStats{
		Vendor:          *vendor,
		SalesToNextRank: commission.SalesToNextRank(commission.Rank(vendor.Rank), vendor.TotalSales),
	}
	if next := commission.NextTier(commission.Rank(vendor.Rank)); next != nil {
		stats.NextRank = string(next.Rank)
	}
	return stats, nil
}

func (s *Service) Leaderboard(ctx context.Context, by string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultLeaderboardLimit
	}
	by = strings.ToLower(strings.TrimSpace(by))

	if entries, ok := s.leaderboard.Get(by, limit); ok {
		return entries, nil
	}

	entries, err := s.repo.Leaderboard(ctx, s.db, by, limit)
	if err != nil {
		return nil, err
	}
	s.leaderboard.Set(by, limit, entries)
	return entries, nil
}
