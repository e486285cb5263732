package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrVendorNotFound   = errors.New("vendor_not_found")
	ErrInvalidVendor    = errors.New("invalid_vendor")
	ErrStaleVendor      = errors.New("stale_vendor")
	ErrVendorEmailTaken = errors.New("vendor_email_taken")
)

type Service interface {
	Create(ctx context.Context, req CreateVendorRequest) (*Vendor, error)
	Stats(ctx context.Context, id snowflake.ID) (*VendorStats, error)
	Leaderboard(ctx context.Context, by string, limit int) ([]LeaderboardEntry, error)
}

type CreateVendorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
