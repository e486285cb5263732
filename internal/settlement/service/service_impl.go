package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	achievementdomain "github.com/marketlane/settlo/internal/achievement/domain"
	"github.com/marketlane/settlo/internal/clock"
	"github.com/marketlane/settlo/internal/commission"
	notifydomain "github.com/marketlane/settlo/internal/notify/domain"
	obsmetrics "github.com/marketlane/settlo/internal/observability/metrics"
	"github.com/marketlane/settlo/internal/settlement/domain"
	vendordomain "github.com/marketlane/settlo/internal/vendors/domain"
	webhookdomain "github.com/marketlane/settlo/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	VendorRepo  vendordomain.Repository
	Achievement achievementdomain.Engine
	NotifySvc   notifydomain.Service
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	vendorRepo  vendordomain.Repository
	achievement achievementdomain.Engine
	notifySvc   notifydomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("settlement.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		vendorRepo:  p.VendorRepo,
		achievement: p.Achievement,
		notifySvc:   p.NotifySvc,
		obsMetrics:  p.ObsMetrics,
	}
}

// ApplyTx settles one completed sale. The vendor row is locked first so
// concurrent settlements for the same vendor serialize; the settlement
// insert is the idempotence gate for replays that slip past event dedupe.
func (s *Service) ApplyTx(ctx context.Context, tx *gorm.DB, eventID snowflake.ID, sale *webhookdomain.SaleEvent) error {
	if sale == nil || sale.VendorID == 0 {
		return webhookdomain.ErrInvalidEvent
	}
	if sale.Amount <= 0 {
		return webhookdomain.ErrInvalidEvent
	}

	vendor, err := s.vendorRepo.FindForUpdate(ctx, tx, sale.VendorID)
	if err != nil {
		return err
	}
	if vendor == nil {
		return webhookdomain.ErrVendorNotFound
	}

	// The rate in force when the sale lands is the vendor's current rank,
	// before this sale counts toward the next tier.
	rateBps := vendor.CommissionRateBps
	if !commission.Valid(commission.Rank(vendor.Rank)) {
		rateBps = commission.RateBps(commission.RankBronze)
	}
	commissionAmount := sale.Amount * rateBps / 10000
	netAmount := sale.Amount - commissionAmount

	now := s.clock.Now()
	occurredAt := sale.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	inserted, err := s.repo.InsertSettlement(ctx, tx, &domain.Settlement{
		ID:                s.genID.Generate(),
		VendorID:          vendor.ID,
		EventID:           eventID,
		OrderID:           sale.OrderID,
		PaymentID:         sale.PaymentID,
		GrossAmount:       sale.Amount,
		CommissionRateBps: rateBps,
		CommissionAmount:  commissionAmount,
		NetAmount:         netAmount,
		Currency:          sale.Currency,
		OccurredAt:        occurredAt,
		CreatedAt:         now,
	})
	if err != nil {
		return err
	}
	if !inserted {
		// Already settled by an earlier delivery of the same event.
		return nil
	}

	previousRank := vendor.Rank
	vendor.TotalSales++
	vendor.TotalRevenue += sale.Amount
	newRank := commission.RankForSales(vendor.TotalSales)
	vendor.Rank = string(newRank)
	vendor.CommissionRateBps = commission.RateBps(newRank)
	vendor.UpdatedAt = now

	if err := s.vendorRepo.UpdateSettled(ctx, tx, vendor); err != nil {
		return err
	}

	if err := s.notifySvc.NotifyTx(ctx, tx, notifydomain.Notification{
		VendorID: vendor.ID,
		Type:     notifydomain.TypeSaleSettled,
		Title:    "Sale settled",
		Body:     fmt.Sprintf("Sale of %d %s settled: %d net after %d commission", sale.Amount, sale.Currency, netAmount, commissionAmount),
		Payload: map[string]any{
			"payment_id": sale.PaymentID,
			"order_id":   sale.OrderID,
			"gross":      sale.Amount,
			"commission": commissionAmount,
			"net":        netAmount,
			"currency":   sale.Currency,
		},
	}); err != nil {
		return err
	}

	if vendor.Rank != previousRank {
		if err := s.notifySvc.NotifyTx(ctx, tx, notifydomain.Notification{
			VendorID: vendor.ID,
			Type:     notifydomain.TypeRankPromoted,
			Title:    "Rank promoted",
			Body:     fmt.Sprintf("Promoted from %s to %s", previousRank, vendor.Rank),
			Payload:  map[string]any{"from": previousRank, "to": vendor.Rank},
		}); err != nil {
			return err
		}
		s.obsMetrics.RecordRankPromotion(ctx, vendor.Rank)
	}

	stats := achievementdomain.StatsSnapshot{
		TotalSales:         vendor.TotalSales,
		TotalRevenue:       vendor.TotalRevenue,
		GamificationPoints: vendor.GamificationPoints,
		AverageRatingCenti: vendor.AverageRatingCenti,
		Rank:               vendor.Rank,
	}
	if _, err := s.achievement.Apply(ctx, tx, vendor.ID, stats); err != nil {
		return err
	}

	s.log.Info("sale settled",
		zap.String("vendor_id", vendor.ID.String()),
		zap.String("payment_id", sale.PaymentID),
		zap.Int64("gross", sale.Amount),
		zap.Int64("commission", commissionAmount),
		zap.Int64("net", netAmount),
		zap.String("rank", vendor.Rank),
	)
	s.obsMetrics.RecordSettlement(ctx, sale.Currency, netAmount)

	return nil
}

func (s *Service) ListByVendor(ctx context.Context, vendorID snowflake.ID, limit int) ([]domain.Settlement, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	return s.repo.ListByVendor(ctx, s.db, vendorID, limit)
}
