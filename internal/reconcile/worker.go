package reconcile

import (
	"context"
	"time"

	"github.com/marketlane/settlo/internal/clock"
	pointsdomain "github.com/marketlane/settlo/internal/points/domain"
	"github.com/marketlane/settlo/internal/ratelimit"
	webhookdomain "github.com/marketlane/settlo/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	PointsRepo  pointsdomain.Repository
	WebhookRepo webhookdomain.Repository
	Locker      *ratelimit.Locker `optional:"true"`
	Config      Config            `optional:"true"`
}

// Worker audits the denormalized vendor point counters against the
// append-only ledger and frees webhook events stuck in processing.
type Worker struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	clock       clock.Clock
	pointsRepo  pointsdomain.Repository
	webhookRepo webhookdomain.Repository
	locker      *ratelimit.Locker
}

func New(p Params) *Worker {
	return &Worker{
		db:          p.DB,
		log:         p.Log.Named("reconcile").With(zap.String("component", "reconcile")),
		cfg:         p.Config.withDefaults(),
		clock:       p.Clock,
		pointsRepo:  p.PointsRepo,
		webhookRepo: p.WebhookRepo,
		locker:      p.Locker,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("reconcile run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, w.cfg.RunTimeout)
	defer cancel()

	// Only one instance audits at a time when redis is available.
	if w.locker != nil {
		token, ok, err := w.locker.TryLock(ctx, "settlo:reconcile", w.cfg.RunTimeout)
		if err != nil {
			w.log.Warn("reconcile lock unavailable", zap.Error(err))
		} else if !ok {
			return nil
		} else {
			defer func() {
				if err := w.locker.Release(context.WithoutCancel(ctx), "settlo:reconcile", token); err != nil {
					w.log.Warn("reconcile lock release failed", zap.Error(err))
				}
			}()
		}
	}

	if err := w.auditPoints(ctx); err != nil {
		return err
	}
	return w.recoverStuckEvents(ctx)
}

// auditPoints reports vendors whose counter has drifted from the sum
// of their ledger entries. Drift is logged, never silently repaired:
// a divergent counter means a write path skipped the ledger.
func (w *Worker) auditPoints(ctx context.Context) error {
	balances, err := w.pointsRepo.Balances(ctx, w.db)
	if err != nil {
		return err
	}

	drifted := 0
	for _, b := range balances {
		if b.Counter == b.LedgerSum {
			continue
		}
		drifted++
		w.log.Error("points counter drift",
			zap.String("vendor_id", b.VendorID.String()),
			zap.Int64("counter", b.Counter),
			zap.Int64("ledger_sum", b.LedgerSum),
		)
	}
	if drifted == 0 {
		w.log.Debug("points ledger consistent", zap.Int("vendors", len(balances)))
	}
	return nil
}

func (w *Worker) recoverStuckEvents(ctx context.Context) error {
	cutoff := w.clock.Now().Add(-w.cfg.StuckThreshold)
	recovered, err := w.webhookRepo.RecoverStuck(ctx, w.db, cutoff)
	if err != nil {
		return err
	}
	if recovered > 0 {
		w.log.Warn("recovered stuck webhook events", zap.Int64("count", recovered))
	}
	return nil
}
