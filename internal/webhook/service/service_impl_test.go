package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	achievementrepository "github.com/marketlane/settlo/internal/achievement/repository"
	achievementservice "github.com/marketlane/settlo/internal/achievement/service"
	"github.com/marketlane/settlo/internal/clock"
	"github.com/marketlane/settlo/internal/config"
	notifyrepository "github.com/marketlane/settlo/internal/notify/repository"
	notifyservice "github.com/marketlane/settlo/internal/notify/service"
	pointsrepository "github.com/marketlane/settlo/internal/points/repository"
	pointsservice "github.com/marketlane/settlo/internal/points/service"
	settlementrepository "github.com/marketlane/settlo/internal/settlement/repository"
	settlementservice "github.com/marketlane/settlo/internal/settlement/service"
	vendordomain "github.com/marketlane/settlo/internal/vendors/domain"
	vendorrepository "github.com/marketlane/settlo/internal/vendors/repository"
	"github.com/marketlane/settlo/internal/webhook/adapters"
	"github.com/marketlane/settlo/internal/webhook/domain"
	"github.com/marketlane/settlo/internal/webhook/moneroo"
	webhookrepository "github.com/marketlane/settlo/internal/webhook/repository"
	"github.com/marketlane/settlo/internal/webhook/signature"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "whsec_test"

var testSchema = []string{
	`CREATE TABLE vendors (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		rank TEXT NOT NULL,
		commission_rate_bps INTEGER NOT NULL,
		total_sales INTEGER NOT NULL DEFAULT 0,
		total_revenue INTEGER NOT NULL DEFAULT 0,
		gamification_points INTEGER NOT NULL DEFAULT 0,
		average_rating_centi INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE webhook_events (
		id INTEGER PRIMARY KEY,
		provider TEXT NOT NULL,
		provider_event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		received_at DATETIME NOT NULL,
		applied_at DATETIME,
		UNIQUE (provider, provider_event_id)
	)`,
	`CREATE TABLE settlements (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		event_id INTEGER NOT NULL UNIQUE,
		order_id TEXT NOT NULL DEFAULT '',
		payment_id TEXT NOT NULL,
		gross_amount INTEGER NOT NULL,
		commission_rate_bps INTEGER NOT NULL,
		commission_amount INTEGER NOT NULL,
		net_amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		occurred_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE unlocked_achievements (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		achievement_id TEXT NOT NULL,
		unlocked_at DATETIME NOT NULL,
		UNIQUE (vendor_id, achievement_id)
	)`,
	`CREATE TABLE points_transactions (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		delta INTEGER NOT NULL,
		reason TEXT NOT NULL,
		ref_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (vendor_id, reason, ref_id)
	)`,
	`CREATE TABLE notifications (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '{}',
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	// SQLite has no FOR UPDATE; strip it so the locking queries run.
	stripForUpdate := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripForUpdate)
	db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripForUpdate)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range testSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}
	return db
}

type testEnv struct {
	db    *gorm.DB
	clk   *clock.FakeClock
	genID *snowflake.Node
	repo  domain.Repository
	svc   domain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithTimeout(t, 5*time.Second)
}

func newTestEnvWithTimeout(t *testing.T, processTimeout time.Duration) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	log := zap.NewNop()

	vendorRepo := vendorrepository.Provide()
	pointsRepo := pointsrepository.Provide()
	notifyRepo := notifyrepository.Provide()
	achievementRepo := achievementrepository.Provide()
	settlementRepo := settlementrepository.Provide()
	webhookRepo := webhookrepository.Provide()

	notifySvc := notifyservice.NewService(notifyservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  notifyRepo,
	})
	pointsSvc := pointsservice.NewService(pointsservice.Params{
		Log:        log,
		GenID:      node,
		Clock:      clk,
		Repo:       pointsRepo,
		VendorRepo: vendorRepo,
	})
	achievementEngine := achievementservice.NewEngine(achievementservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Repo:      achievementRepo,
		PointsSvc: pointsSvc,
		NotifySvc: notifySvc,
	})
	settlementSvc := settlementservice.NewService(settlementservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Repo:        settlementRepo,
		VendorRepo:  vendorRepo,
		Achievement: achievementEngine,
		NotifySvc:   notifySvc,
	})

	cfg := config.Config{
		MonerooWebhookSecret: testSecret,
		ProcessTimeout:       processTimeout,
	}
	svc := NewService(Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Clock:         clk,
		Cfg:           cfg,
		Repo:          webhookRepo,
		Adapters:      adapters.NewRegistry(moneroo.NewAdapter(testSecret)),
		SettlementSvc: settlementSvc,
		NotifySvc:     notifySvc,
	})

	return &testEnv{db: db, clk: clk, genID: node, repo: webhookRepo, svc: svc}
}

func (e *testEnv) seedVendor(t *testing.T, totalSales int64, rank string, rateBps int64) *vendordomain.Vendor {
	t.Helper()
	now := e.clk.Now()
	v := &vendordomain.Vendor{
		ID:                e.genID.Generate(),
		Name:              "Amina Diallo",
		Email:             "amina@example.com",
		Rank:              rank,
		CommissionRateBps: rateBps,
		TotalSales:        totalSales,
		TotalRevenue:      totalSales * 1000,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := vendorrepository.Provide().Insert(context.Background(), e.db, v); err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}
	return v
}

func completedPayload(paymentID string, amount int64, vendorID snowflake.ID) []byte {
	return []byte(fmt.Sprintf(`{
		"event_type": "payment.completed",
		"data": {
			"payment_id": %q,
			"amount": %d,
			"currency": "XOF",
			"customer": {"email": "buyer@example.com"},
			"paid_at": "2025-06-01T11:59:00Z",
			"metadata": {"order_id": "ord_1", "vendor_id": %q}
		}
	}`, paymentID, amount, vendorID.String()))
}

func signedHeaders(payload []byte) http.Header {
	h := http.Header{}
	h.Set("X-Moneroo-Signature", signature.Compute(payload, testSecret))
	return h
}

func (e *testEnv) storedEvent(t *testing.T, paymentID string) *domain.EventRecord {
	t.Helper()
	record, err := e.repo.FindEvent(context.Background(), e.db, "moneroo", "payment.completed:"+paymentID)
	if err != nil {
		t.Fatalf("failed to load event: %v", err)
	}
	return record
}

func (e *testEnv) vendorByID(t *testing.T, id snowflake.ID) *vendordomain.Vendor {
	t.Helper()
	v, err := vendorrepository.Provide().FindByID(context.Background(), e.db, id)
	if err != nil {
		t.Fatalf("failed to load vendor: %v", err)
	}
	if v == nil {
		t.Fatalf("vendor %s not found", id)
	}
	return v
}

func TestIngestCompletedSale(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, 0, "bronze", 450)

	payload := completedPayload("pay_1", 10000, vendor.ID)
	if err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	record := env.storedEvent(t, "pay_1")
	if record == nil {
		t.Fatal("event not recorded")
	}
	if record.Status != domain.StatusApplied {
		t.Fatalf("expected applied, got %s", record.Status)
	}
	if record.AppliedAt == nil {
		t.Fatal("applied_at not set")
	}

	var s struct {
		GrossAmount      int64
		CommissionAmount int64
		NetAmount        int64
	}
	if err := env.db.Raw(`SELECT gross_amount, commission_amount, net_amount FROM settlements WHERE event_id = ?`, record.ID).Scan(&s).Error; err != nil {
		t.Fatalf("failed to load settlement: %v", err)
	}
	if s.GrossAmount != 10000 || s.CommissionAmount != 450 || s.NetAmount != 9550 {
		t.Fatalf("unexpected split: gross=%d commission=%d net=%d", s.GrossAmount, s.CommissionAmount, s.NetAmount)
	}

	updated := env.vendorByID(t, vendor.ID)
	if updated.TotalSales != 1 || updated.TotalRevenue != 10000 {
		t.Fatalf("unexpected counters: sales=%d revenue=%d", updated.TotalSales, updated.TotalRevenue)
	}
	if updated.GamificationPoints != 100 {
		t.Fatalf("expected first_sale points, got %d", updated.GamificationPoints)
	}

	var notifCount int64
	env.db.Raw(`SELECT COUNT(*) FROM notifications WHERE vendor_id = ? AND type = 'sale_settled'`, vendor.ID).Scan(&notifCount)
	if notifCount != 1 {
		t.Fatalf("expected one sale_settled notification, got %d", notifCount)
	}
}

func TestIngestDuplicateDelivery(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, 0, "bronze", 450)

	payload := completedPayload("pay_dup", 10000, vendor.ID)
	if err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload))
	if !errors.Is(err, domain.ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}

	updated := env.vendorByID(t, vendor.ID)
	if updated.TotalSales != 1 {
		t.Fatalf("duplicate delivery double-counted: sales=%d", updated.TotalSales)
	}
	var count int64
	env.db.Raw(`SELECT COUNT(*) FROM settlements WHERE vendor_id = ?`, vendor.ID).Scan(&count)
	if count != 1 {
		t.Fatalf("expected one settlement, got %d", count)
	}
}

func TestTenthSalePromotesToSilver(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, 9, "bronze", 450)

	payload := completedPayload("pay_10", 20000, vendor.ID)
	if err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	updated := env.vendorByID(t, vendor.ID)
	if updated.Rank != "silver" || updated.CommissionRateBps != 425 {
		t.Fatalf("expected silver at 425 bps, got %s at %d", updated.Rank, updated.CommissionRateBps)
	}

	// The sale that causes the promotion still pays at the old rate.
	var rateBps int64
	env.db.Raw(`SELECT commission_rate_bps FROM settlements WHERE vendor_id = ?`, vendor.ID).Scan(&rateBps)
	if rateBps != 450 {
		t.Fatalf("expected bronze rate on promoting sale, got %d", rateBps)
	}

	var unlocked []string
	env.db.Raw(`SELECT achievement_id FROM unlocked_achievements WHERE vendor_id = ? ORDER BY achievement_id`, vendor.ID).Scan(&unlocked)
	want := map[string]bool{"first_sale": true, "ten_sales": true, "silver_rank": true}
	for _, id := range unlocked {
		if !want[id] {
			t.Fatalf("unexpected achievement %s", id)
		}
		delete(want, id)
	}
	for id := range want {
		t.Fatalf("achievement %s not unlocked", id)
	}

	var promoCount int64
	env.db.Raw(`SELECT COUNT(*) FROM notifications WHERE vendor_id = ? AND type = 'rank_promoted'`, vendor.ID).Scan(&promoCount)
	if promoCount != 1 {
		t.Fatalf("expected one rank_promoted notification, got %d", promoCount)
	}

	// first_sale 100 + ten_sales 250 + silver_rank 300
	if updated.GamificationPoints != 650 {
		t.Fatalf("unexpected points total %d", updated.GamificationPoints)
	}
}

func TestInvalidSignatureRejected(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, 0, "bronze", 450)

	payload := completedPayload("pay_sig", 10000, vendor.ID)
	h := http.Header{}
	h.Set("X-Moneroo-Signature", "deadbeef")
	err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, h)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	var count int64
	env.db.Raw(`SELECT COUNT(*) FROM webhook_events`).Scan(&count)
	if count != 0 {
		t.Fatalf("rejected delivery was stored, count=%d", count)
	}
}

func TestMalformedPayloadMarksFailed(t *testing.T) {
	env := newTestEnv(t)

	payload := []byte(`{"event_type": "payment.completed", "data": {"payment_id": "pay_bad"`)
	if err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("malformed payload must be acknowledged, got %v", err)
	}

	var record domain.EventRecord
	if err := env.db.Raw(`SELECT id, status, error FROM webhook_events LIMIT 1`).Scan(&record).Error; err != nil {
		t.Fatalf("failed to load event: %v", err)
	}
	if record.ID == 0 {
		t.Fatal("malformed delivery not recorded")
	}
	if record.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", record.Status)
	}
	if record.Error == "" {
		t.Fatal("failure reason missing")
	}
}

func TestProcessTimeoutMarksFailed(t *testing.T) {
	env := newTestEnvWithTimeout(t, time.Nanosecond)
	vendor := env.seedVendor(t, 0, "bronze", 450)

	payload := completedPayload("pay_slow", 10000, vendor.ID)
	err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload))
	if err == nil {
		t.Fatal("expected a timeout error so the provider retries")
	}

	// The failed status must be written even though the processing
	// deadline already expired; otherwise the event is stranded in
	// processing and retries are swallowed as duplicates.
	record := env.storedEvent(t, "pay_slow")
	if record == nil {
		t.Fatal("event not recorded")
	}
	if record.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", record.Status)
	}
	if record.Error == "" {
		t.Fatal("failure reason missing")
	}

	updated := env.vendorByID(t, vendor.ID)
	if updated.TotalSales != 0 {
		t.Fatalf("timed out settlement changed counters: sales=%d", updated.TotalSales)
	}
}

func TestUnknownEventTypeIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, 0, "bronze", 450)

	payload := []byte(`{"event_type": "payout.settled", "data": {"payment_id": "pay_x"}}`)
	if err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("unknown type must be acknowledged, got %v", err)
	}

	var status string
	env.db.Raw(`SELECT status FROM webhook_events WHERE provider_event_id = 'payout.settled:pay_x'`).Scan(&status)
	if status != string(domain.StatusApplied) {
		t.Fatalf("expected applied, got %s", status)
	}

	updated := env.vendorByID(t, vendor.ID)
	if updated.TotalSales != 0 {
		t.Fatalf("no-op event changed counters: sales=%d", updated.TotalSales)
	}
}

func TestUnknownVendorMarksFailed(t *testing.T) {
	env := newTestEnv(t)

	payload := completedPayload("pay_ghost", 10000, snowflake.ID(123456789))
	if err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("unresolvable vendor must be acknowledged, got %v", err)
	}

	record := env.storedEvent(t, "pay_ghost")
	if record == nil || record.Status != domain.StatusFailed {
		t.Fatalf("expected failed event, got %+v", record)
	}

	var count int64
	env.db.Raw(`SELECT COUNT(*) FROM settlements`).Scan(&count)
	if count != 0 {
		t.Fatalf("settlement created for unknown vendor, count=%d", count)
	}
}

func TestReplayFailedEvent(t *testing.T) {
	env := newTestEnv(t)

	vendorID := env.genID.Generate()
	payload := completedPayload("pay_replay", 10000, vendorID)
	if err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	record := env.storedEvent(t, "pay_replay")
	if record == nil || record.Status != domain.StatusFailed {
		t.Fatalf("expected failed event before replay, got %+v", record)
	}

	// The vendor turns up late; replaying the stored payload settles it.
	now := env.clk.Now()
	v := &vendordomain.Vendor{
		ID: vendorID, Name: "Late Vendor", Email: "late@example.com",
		Rank: "bronze", CommissionRateBps: 450, Version: 1,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := vendorrepository.Provide().Insert(context.Background(), env.db, v); err != nil {
		t.Fatalf("failed to create vendor: %v", err)
	}

	if err := env.svc.Replay(context.Background(), record.ID); err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	record = env.storedEvent(t, "pay_replay")
	if record.Status != domain.StatusApplied {
		t.Fatalf("expected applied after replay, got %s", record.Status)
	}
	updated := env.vendorByID(t, vendorID)
	if updated.TotalSales != 1 {
		t.Fatalf("replay did not settle: sales=%d", updated.TotalSales)
	}
}

func TestReplayAppliedEventIsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, 0, "bronze", 450)

	payload := completedPayload("pay_done", 10000, vendor.ID)
	if err := env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	record := env.storedEvent(t, "pay_done")

	err := env.svc.Replay(context.Background(), record.ID)
	if !errors.Is(err, domain.ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}
}

func TestReplayMissingEvent(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.Replay(context.Background(), env.genID.Generate())
	if !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestConcurrentDistinctDeliveries(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, 0, "bronze", 450)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := completedPayload(fmt.Sprintf("pay_c%d", i), 1000, vendor.ID)
			errs <- env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent ingest failed: %v", err)
		}
	}

	updated := env.vendorByID(t, vendor.ID)
	if updated.TotalSales != n || updated.TotalRevenue != n*1000 {
		t.Fatalf("lost update: sales=%d revenue=%d", updated.TotalSales, updated.TotalRevenue)
	}
}

func TestConcurrentSameDeliveryAppliesOnce(t *testing.T) {
	env := newTestEnv(t)
	vendor := env.seedVendor(t, 0, "bronze", 450)

	payload := completedPayload("pay_race", 5000, vendor.ID)
	const n = 4
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- env.svc.IngestWebhook(context.Background(), "moneroo", payload, signedHeaders(payload))
		}()
	}
	wg.Wait()
	close(errs)

	var applied, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			applied++
		case errors.Is(err, domain.ErrDuplicateEvent):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if applied != 1 || duplicates != n-1 {
		t.Fatalf("expected exactly one winner, got applied=%d duplicates=%d", applied, duplicates)
	}

	updated := env.vendorByID(t, vendor.ID)
	if updated.TotalSales != 1 {
		t.Fatalf("race double-counted: sales=%d", updated.TotalSales)
	}
}

func TestUnknownProvider(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.IngestWebhook(context.Background(), "stripe", []byte(`{}`), http.Header{})
	if !errors.Is(err, domain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}
