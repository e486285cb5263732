package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/marketlane/settlo/internal/clock"
	"github.com/marketlane/settlo/internal/vendors/domain"
	"github.com/marketlane/settlo/internal/vendors/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_vendor_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec(`CREATE TABLE vendors (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		rank TEXT NOT NULL,
		commission_rate_bps INTEGER NOT NULL,
		total_sales INTEGER NOT NULL DEFAULT 0,
		total_revenue INTEGER NOT NULL DEFAULT 0,
		gamification_points INTEGER NOT NULL DEFAULT 0,
		average_rating_centi INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestCreateVendor(t *testing.T) {
	svc, _ := newTestService(t)

	vendor, err := svc.Create(context.Background(), domain.CreateVendorRequest{
		Name:  "Amina Diallo",
		Email: "  Amina@Example.com ",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if vendor.Email != "amina@example.com" {
		t.Fatalf("email not normalized: %s", vendor.Email)
	}
	if vendor.Rank != "bronze" || vendor.CommissionRateBps != 450 {
		t.Fatalf("expected bronze at 450 bps, got %s at %d", vendor.Rank, vendor.CommissionRateBps)
	}
}

func TestCreateVendorRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []domain.CreateVendorRequest{
		{Name: "", Email: "a@example.com"},
		{Name: "No Email", Email: ""},
		{Name: "Bad Email", Email: "not-an-email"},
	}
	for _, req := range cases {
		if _, err := svc.Create(context.Background(), req); !errors.Is(err, domain.ErrInvalidVendor) {
			t.Fatalf("expected ErrInvalidVendor for %+v, got %v", req, err)
		}
	}
}

func TestCreateVendorDuplicateEmail(t *testing.T) {
	svc, db := newTestService(t)

	if _, err := svc.Create(context.Background(), domain.CreateVendorRequest{
		Name:  "Amina Diallo",
		Email: "amina@example.com",
	}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	// Same address with different casing must hit the unique index,
	// not slip past as a distinct vendor.
	_, err := svc.Create(context.Background(), domain.CreateVendorRequest{
		Name:  "Impostor",
		Email: "AMINA@example.com",
	})
	if !errors.Is(err, domain.ErrVendorEmailTaken) {
		t.Fatalf("expected ErrVendorEmailTaken, got %v", err)
	}

	var count int64
	db.Raw(`SELECT COUNT(*) FROM vendors`).Scan(&count)
	if count != 1 {
		t.Fatalf("expected one vendor, got %d", count)
	}
}
