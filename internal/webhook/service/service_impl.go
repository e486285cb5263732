package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/clock"
	"github.com/marketlane/settlo/internal/config"
	notifydomain "github.com/marketlane/settlo/internal/notify/domain"
	obsmetrics "github.com/marketlane/settlo/internal/observability/metrics"
	settlementdomain "github.com/marketlane/settlo/internal/settlement/domain"
	"github.com/marketlane/settlo/internal/webhook/adapters"
	"github.com/marketlane/settlo/internal/webhook/domain"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Cfg           config.Config
	Repo          domain.Repository
	Adapters      *adapters.Registry
	SettlementSvc settlementdomain.Service
	NotifySvc     notifydomain.Service
	Redis         *redis.Client       `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	cfg           config.Config
	repo          domain.Repository
	adapters      *adapters.Registry
	settlementSvc settlementdomain.Service
	notifySvc     notifydomain.Service
	redis         *redis.Client
	obsMetrics    *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("webhook.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		cfg:           p.Cfg,
		repo:          p.Repo,
		adapters:      p.Adapters,
		settlementSvc: p.SettlementSvc,
		notifySvc:     p.NotifySvc,
		redis:         p.Redis,
		obsMetrics:    p.ObsMetrics,
	}
}

// IngestWebhook verifies a delivery, claims it exactly once and applies
// its settlement effect. A valid delivery is always answered, even when
// its payload turns out to be garbage: the provider cannot fix that by
// retrying.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return domain.ErrInvalidProvider
	}

	adapter, ok := s.adapters.Adapter(provider)
	if !ok {
		return domain.ErrProviderNotFound
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, "unknown", "rejected")
		return err
	}

	record, err := s.claim(ctx, adapter, provider, payload)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			s.obsMetrics.RecordWebhookEvent(ctx, provider, "unknown", "duplicate")
		}
		return err
	}

	return s.process(ctx, adapter, record)
}

// Replay re-runs a stored event through the same pipeline. Applied
// events are reported as duplicates; failed and stuck events are
// re-claimed and processed from their stored payload.
func (s *Service) Replay(ctx context.Context, id snowflake.ID) error {
	record, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if record == nil {
		return domain.ErrEventNotFound
	}

	switch record.Status {
	case domain.StatusApplied:
		return domain.ErrDuplicateEvent
	case domain.StatusProcessing:
		return domain.ErrEventNotReplayable
	case domain.StatusReceived, domain.StatusFailed:
	default:
		return domain.ErrEventNotReplayable
	}

	adapter, ok := s.adapters.Adapter(record.Provider)
	if !ok {
		return domain.ErrProviderNotFound
	}

	claimed, err := s.repo.Transition(ctx, s.db, record.ID, record.Status, domain.StatusProcessing)
	if err != nil {
		return err
	}
	if !claimed {
		return domain.ErrEventNotReplayable
	}

	s.log.Info("replaying webhook event",
		zap.String("event_id", record.ID.String()),
		zap.String("provider", record.Provider),
		zap.String("prior_status", string(record.Status)),
	)
	return s.process(ctx, adapter, record)
}

func (s *Service) ListEvents(ctx context.Context, req domain.ListEventsRequest) (domain.ListEventsResponse, error) {
	return s.repo.List(ctx, s.db, req)
}

// Health reports provider credential configuration and dependency
// reachability without touching any provider API.
func (s *Service) Health(ctx context.Context) domain.HealthReport {
	report := domain.HealthReport{Providers: map[string]bool{}}
	for _, provider := range s.adapters.Providers() {
		configured := false
		if provider == "moneroo" {
			configured = strings.TrimSpace(s.cfg.MonerooWebhookSecret) != ""
		}
		report.Providers[provider] = configured
	}

	if sqlDB, err := s.db.DB(); err == nil {
		report.Database = sqlDB.PingContext(ctx) == nil
	}

	if s.redis != nil {
		ok := s.redis.Ping(ctx).Err() == nil
		report.Redis = &ok
	}

	return report
}

// claim inserts the delivery and wins the right to process it. Exactly
// one caller per (provider, provider_event_id) gets a record back;
// everyone else sees ErrDuplicateEvent.
func (s *Service) claim(ctx context.Context, adapter domain.Adapter, provider string, payload []byte) (*domain.EventRecord, error) {
	eventID := adapter.EventID(payload)

	record := &domain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       peekEventType(payload),
		Payload:         storablePayload(payload),
		Status:          domain.StatusReceived,
		ReceivedAt:      s.clock.Now(),
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, record)
	if err != nil {
		return nil, err
	}
	if !inserted {
		stored, err := s.repo.FindEvent(ctx, s.db, provider, eventID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, domain.ErrInvalidEvent
		}
		switch stored.Status {
		case domain.StatusApplied, domain.StatusProcessing:
			return nil, domain.ErrDuplicateEvent
		}
		record = stored
	}

	claimed, err := s.repo.Transition(ctx, s.db, record.ID, record.Status, domain.StatusProcessing)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, domain.ErrDuplicateEvent
	}
	record.Status = domain.StatusProcessing
	return record, nil
}

// process runs the claimed event to a terminal state. Parse and
// validation failures are terminal: the event is marked failed and the
// delivery acknowledged. Storage failures leave the event failed and
// bubble up so the provider retries.
func (s *Service) process(parentCtx context.Context, adapter domain.Adapter, record *domain.EventRecord) error {
	timeout := s.cfg.ProcessTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	// Status writes must land even when the deadline above has fired,
	// otherwise the event is stuck in processing until the reconciler
	// sweeps it.
	statusCtx := context.WithoutCancel(parentCtx)

	sale, err := adapter.Parse(ctx, []byte(record.Payload))
	if err != nil {
		s.failTerminal(statusCtx, record, err)
		return nil
	}

	switch sale.Type {
	case domain.EventTypePaymentCompleted:
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.settlementSvc.ApplyTx(ctx, tx, record.ID, sale)
		})
		if err != nil {
			if errors.Is(err, domain.ErrVendorNotFound) || errors.Is(err, domain.ErrInvalidEvent) {
				s.failTerminal(statusCtx, record, err)
				return nil
			}
			if markErr := s.repo.MarkFailed(statusCtx, s.db, record.ID, err.Error()); markErr != nil {
				s.log.Error("mark failed after settlement error", zap.Error(markErr))
			}
			s.obsMetrics.RecordWebhookEvent(statusCtx, record.Provider, record.EventType, "error")
			return err
		}
	case domain.EventTypePaymentFailed, domain.EventTypePaymentCancelled:
		s.log.Info("payment did not complete",
			zap.String("event_id", record.ID.String()),
			zap.String("event_type", sale.Type),
			zap.String("payment_id", sale.PaymentID),
		)
	default:
		s.log.Info("ignoring unhandled event type",
			zap.String("event_id", record.ID.String()),
			zap.String("event_type", sale.Type),
		)
	}

	if err := s.repo.MarkApplied(statusCtx, s.db, record.ID, s.clock.Now()); err != nil {
		return err
	}
	s.obsMetrics.RecordWebhookEvent(statusCtx, record.Provider, record.EventType, "applied")
	return nil
}

func (s *Service) failTerminal(ctx context.Context, record *domain.EventRecord, cause error) {
	if err := s.repo.MarkFailed(ctx, s.db, record.ID, cause.Error()); err != nil {
		s.log.Error("mark failed", zap.Error(err), zap.String("event_id", record.ID.String()))
		return
	}
	s.log.Warn("webhook event failed",
		zap.String("event_id", record.ID.String()),
		zap.String("provider", record.Provider),
		zap.String("event_type", record.EventType),
		zap.String("reason", cause.Error()),
	)
	s.obsMetrics.RecordWebhookEvent(ctx, record.Provider, record.EventType, "failed")
}

func peekEventType(payload []byte) string {
	var probe struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return "unknown"
	}
	if eventType := strings.TrimSpace(probe.EventType); eventType != "" {
		return eventType
	}
	return "unknown"
}

// storablePayload keeps the payload column valid JSON even for bodies
// that never were.
func storablePayload(payload []byte) datatypes.JSON {
	if json.Valid(payload) {
		return datatypes.JSON(payload)
	}
	wrapped, err := json.Marshal(map[string]string{"raw": string(payload)})
	if err != nil {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(wrapped)
}
