package cache

import (
	"fmt"
	"time"

	vendordomain "github.com/marketlane/settlo/internal/vendors/domain"
)

const defaultLeaderboardTTL = 30 * time.Second

// LeaderboardCache keeps ranked vendor listings hot. The leaderboard
// endpoint is public and takes a table scan to build, so a short TTL
// shields the database without making rankings noticeably stale.
type LeaderboardCache struct {
	entries Cache[string, []vendordomain.LeaderboardEntry]
	ttl     time.Duration
}

func NewLeaderboardCache() *LeaderboardCache {
	return &LeaderboardCache{
		entries: NewTTLCache[string, []vendordomain.LeaderboardEntry](),
		ttl:     defaultLeaderboardTTL,
	}
}

func (c *LeaderboardCache) Get(by string, limit int) ([]vendordomain.LeaderboardEntry, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(leaderboardKey(by, limit))
}

func (c *LeaderboardCache) Set(by string, limit int, entries []vendordomain.LeaderboardEntry) {
	if c == nil {
		return
	}
	c.entries.Set(leaderboardKey(by, limit), entries, c.ttl)
}

func leaderboardKey(by string, limit int) string {
	return fmt.Sprintf("%s:%d", by, limit)
}
