package commission

import "strings"

// Rank identifies a vendor commission tier.
type Rank string

const (
	RankBronze   Rank = "bronze"
	RankSilver   Rank = "silver"
	RankGold     Rank = "gold"
	RankPlatinum Rank = "platinum"
	RankDiamond  Rank = "diamond"
	RankMagnat   Rank = "magnat"
	RankSenior   Rank = "senior"
)

// Tier binds a rank to its sales threshold and commission rate.
type Tier struct {
	Rank     Rank
	MinSales int64
	RateBps  int64
}

// Tiers returns the rank ladder ordered by ascending MinSales.
// Rates only ever decrease as a vendor climbs.
func Tiers() []Tier {
	return []Tier{
		{Rank: RankBronze, MinSales: 0, RateBps: 450},
		{Rank: RankSilver, MinSales: 10, RateBps: 425},
		{Rank: RankGold, MinSales: 25, RateBps: 400},
		{Rank: RankPlatinum, MinSales: 50, RateBps: 375},
		{Rank: RankDiamond, MinSales: 100, RateBps: 350},
		{Rank: RankMagnat, MinSales: 250, RateBps: 325},
		{Rank: RankSenior, MinSales: 500, RateBps: 300},
	}
}

// RateBps returns the commission rate for a rank in basis points.
// Unknown ranks fall back to the bronze rate.
func RateBps(rank Rank) int64 {
	for _, tier := range Tiers() {
		if tier.Rank == normalize(rank) {
			return tier.RateBps
		}
	}
	return 450
}

// RankForSales returns the highest tier whose threshold is covered
// by totalSales.
func RankForSales(totalSales int64) Rank {
	rank := RankBronze
	for _, tier := range Tiers() {
		if totalSales >= tier.MinSales {
			rank = tier.Rank
		}
	}
	return rank
}

// Split computes the commission split for a gross amount in minor units.
// The commission floors toward zero so commission+net always equals amount.
func Split(amount int64, rank Rank) (commission, net int64) {
	if amount <= 0 {
		return 0, 0
	}
	commission = amount * RateBps(rank) / 10000
	net = amount - commission
	return commission, net
}

// NextTier returns the tier after rank, or nil at the top of the ladder.
func NextTier(rank Rank) *Tier {
	tiers := Tiers()
	for i, tier := range tiers {
		if tier.Rank == normalize(rank) {
			if i+1 < len(tiers) {
				next := tiers[i+1]
				return &next
			}
			return nil
		}
	}
	return nil
}

// SalesToNextRank returns how many sales remain until the next tier.
// It returns 0 when the vendor already sits at the top rank.
func SalesToNextRank(rank Rank, totalSales int64) int64 {
	next := NextTier(rank)
	if next == nil {
		return 0
	}
	remaining := next.MinSales - totalSales
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Valid reports whether rank names a known tier.
func Valid(rank Rank) bool {
	for _, tier := range Tiers() {
		if tier.Rank == normalize(rank) {
			return true
		}
	}
	return false
}

func normalize(rank Rank) Rank {
	return Rank(strings.ToLower(strings.TrimSpace(string(rank))))
}
