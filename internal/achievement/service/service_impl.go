package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/achievement/domain"
	"github.com/marketlane/settlo/internal/clock"
	notifydomain "github.com/marketlane/settlo/internal/notify/domain"
	obsmetrics "github.com/marketlane/settlo/internal/observability/metrics"
	pointsdomain "github.com/marketlane/settlo/internal/points/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	PointsSvc  pointsdomain.Service
	NotifySvc  notifydomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Engine struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	pointsSvc  pointsdomain.Service
	notifySvc  notifydomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewEngine(p Params) domain.Engine {
	return &Engine{
		db:         p.DB,
		log:        p.Log.Named("achievement.engine"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		pointsSvc:  p.PointsSvc,
		notifySvc:  p.NotifySvc,
		obsMetrics: p.ObsMetrics,
	}
}

// Apply walks the catalog once against the snapshot and unlocks every
// newly satisfied achievement. The unique unlock row is the idempotence
// gate: points and notifications are only written when the insert wins.
func (e *Engine) Apply(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID, stats domain.StatsSnapshot) ([]domain.Definition, error) {
	already, err := e.repo.ListUnlockedIDs(ctx, tx, vendorID)
	if err != nil {
		return nil, err
	}

	var unlocked []domain.Definition
	for _, def := range domain.Catalog() {
		if _, ok := already[def.ID]; ok {
			continue
		}
		if !def.Condition.Satisfied(stats) {
			continue
		}

		inserted, err := e.repo.InsertUnlocked(ctx, tx, &domain.UnlockedAchievement{
			ID:            e.genID.Generate(),
			VendorID:      vendorID,
			AchievementID: def.ID,
			UnlockedAt:    e.clock.Now(),
		})
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}

		if _, err := e.pointsSvc.Credit(ctx, tx, vendorID, def.Points, pointsdomain.ReasonAchievement, def.ID); err != nil {
			return nil, err
		}

		if err := e.notifySvc.NotifyTx(ctx, tx, notifydomain.Notification{
			VendorID: vendorID,
			Type:     notifydomain.TypeAchievementUnlocked,
			Title:    def.Name,
			Body:     fmt.Sprintf("Achievement unlocked: %s (+%d points)", def.Name, def.Points),
			Payload:  map[string]any{"achievement_id": def.ID, "points": def.Points},
		}); err != nil {
			return nil, err
		}

		e.log.Info("achievement unlocked",
			zap.String("vendor_id", vendorID.String()),
			zap.String("achievement_id", def.ID),
			zap.Int64("points", def.Points),
		)
		e.obsMetrics.RecordAchievementUnlock(ctx, def.ID)
		unlocked = append(unlocked, def)
	}

	return unlocked, nil
}

func (e *Engine) ListUnlocked(ctx context.Context, vendorID snowflake.ID) ([]domain.UnlockedAchievement, error) {
	return e.repo.ListUnlocked(ctx, e.db, vendorID)
}

func (e *Engine) Catalog() []domain.Definition {
	return domain.Catalog()
}
