package commission_test

import (
	"testing"

	"github.com/marketlane/settlo/internal/commission"
)

func TestSplitExactness(t *testing.T) {
	cases := []struct {
		name       string
		amount     int64
		rank       commission.Rank
		commission int64
		net        int64
	}{
		{name: "bronze 10000", amount: 10000, rank: commission.RankBronze, commission: 450, net: 9550},
		{name: "senior 10000", amount: 10000, rank: commission.RankSenior, commission: 300, net: 9700},
		{name: "silver rounds down", amount: 999, rank: commission.RankSilver, commission: 42, net: 957},
		{name: "one unit", amount: 1, rank: commission.RankBronze, commission: 0, net: 1},
		{name: "zero amount", amount: 0, rank: commission.RankGold, commission: 0, net: 0},
	}

	for _, tc := range cases {
		gotCommission, gotNet := commission.Split(tc.amount, tc.rank)
		if gotCommission != tc.commission || gotNet != tc.net {
			t.Fatalf("%s: got (%d, %d), want (%d, %d)", tc.name, gotCommission, gotNet, tc.commission, tc.net)
		}
		if gotCommission+gotNet != tc.amount {
			t.Fatalf("%s: split does not sum to amount", tc.name)
		}
	}
}

func TestSplitUnknownRankFallsBackToBronze(t *testing.T) {
	gotCommission, gotNet := commission.Split(10000, commission.Rank("mystery"))
	if gotCommission != 450 || gotNet != 9550 {
		t.Fatalf("got (%d, %d), want (450, 9550)", gotCommission, gotNet)
	}
}

func TestRankForSales(t *testing.T) {
	cases := []struct {
		sales int64
		want  commission.Rank
	}{
		{sales: 0, want: commission.RankBronze},
		{sales: 9, want: commission.RankBronze},
		{sales: 10, want: commission.RankSilver},
		{sales: 24, want: commission.RankSilver},
		{sales: 25, want: commission.RankGold},
		{sales: 50, want: commission.RankPlatinum},
		{sales: 100, want: commission.RankDiamond},
		{sales: 250, want: commission.RankMagnat},
		{sales: 499, want: commission.RankMagnat},
		{sales: 500, want: commission.RankSenior},
		{sales: 100000, want: commission.RankSenior},
	}

	for _, tc := range cases {
		if got := commission.RankForSales(tc.sales); got != tc.want {
			t.Fatalf("sales %d: got %s, want %s", tc.sales, got, tc.want)
		}
	}
}

func TestRankMonotonicRates(t *testing.T) {
	tiers := commission.Tiers()
	for i := 1; i < len(tiers); i++ {
		if tiers[i].MinSales <= tiers[i-1].MinSales {
			t.Fatalf("tier %s threshold does not increase", tiers[i].Rank)
		}
		if tiers[i].RateBps >= tiers[i-1].RateBps {
			t.Fatalf("tier %s rate does not decrease", tiers[i].Rank)
		}
	}
}

func TestSalesToNextRank(t *testing.T) {
	if got := commission.SalesToNextRank(commission.RankBronze, 4); got != 6 {
		t.Fatalf("bronze at 4 sales: got %d, want 6", got)
	}
	if got := commission.SalesToNextRank(commission.RankSenior, 600); got != 0 {
		t.Fatalf("senior has no next rank: got %d, want 0", got)
	}
	if got := commission.SalesToNextRank(commission.RankSilver, 30); got != 0 {
		t.Fatalf("already past threshold: got %d, want 0", got)
	}
}

func TestNextTier(t *testing.T) {
	next := commission.NextTier(commission.RankBronze)
	if next == nil || next.Rank != commission.RankSilver {
		t.Fatalf("bronze next tier: got %+v, want silver", next)
	}
	if commission.NextTier(commission.RankSenior) != nil {
		t.Fatal("senior should have no next tier")
	}
}
