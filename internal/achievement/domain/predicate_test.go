package domain_test

import (
	"testing"

	"github.com/marketlane/settlo/internal/achievement/domain"
)

func TestFieldGte(t *testing.T) {
	stats := domain.StatsSnapshot{
		TotalSales:         10,
		TotalRevenue:       50000,
		GamificationPoints: 350,
		AverageRatingCenti: 500,
		Rank:               "silver",
	}

	cases := []struct {
		name string
		pred domain.FieldGte
		want bool
	}{
		{name: "sales at threshold", pred: domain.FieldGte{Field: domain.FieldTotalSales, Threshold: 10}, want: true},
		{name: "sales below threshold", pred: domain.FieldGte{Field: domain.FieldTotalSales, Threshold: 11}, want: false},
		{name: "revenue", pred: domain.FieldGte{Field: domain.FieldTotalRevenue, Threshold: 50000}, want: true},
		{name: "points", pred: domain.FieldGte{Field: domain.FieldGamificationPoints, Threshold: 351}, want: false},
		{name: "rating", pred: domain.FieldGte{Field: domain.FieldAverageRatingCenti, Threshold: 500}, want: true},
		{name: "unknown field never satisfied", pred: domain.FieldGte{Field: domain.StatField("bogus"), Threshold: 0}, want: false},
		{name: "rank is not numeric", pred: domain.FieldGte{Field: domain.FieldRank, Threshold: 0}, want: false},
	}

	for _, tc := range cases {
		if got := tc.pred.Satisfied(stats); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFieldEquals(t *testing.T) {
	stats := domain.StatsSnapshot{Rank: "gold"}

	if !(domain.FieldEquals{Field: domain.FieldRank, Literal: "gold"}).Satisfied(stats) {
		t.Fatal("exact rank match should be satisfied")
	}
	if !(domain.FieldEquals{Field: domain.FieldRank, Literal: "Gold"}).Satisfied(stats) {
		t.Fatal("rank match should be case insensitive")
	}
	if (domain.FieldEquals{Field: domain.FieldRank, Literal: "silver"}).Satisfied(stats) {
		t.Fatal("different rank should not be satisfied")
	}
	if (domain.FieldEquals{Field: domain.FieldTotalSales, Literal: "10"}).Satisfied(stats) {
		t.Fatal("equals is only defined over the rank field")
	}
}

func TestCatalogIsWellFormed(t *testing.T) {
	seen := map[string]struct{}{}
	for _, def := range domain.Catalog() {
		if def.ID == "" || def.Name == "" {
			t.Fatalf("definition missing identity: %+v", def)
		}
		if def.Points <= 0 {
			t.Fatalf("%s: points must be positive", def.ID)
		}
		if def.Condition == nil {
			t.Fatalf("%s: missing condition", def.ID)
		}
		if _, dup := seen[def.ID]; dup {
			t.Fatalf("duplicate achievement id %s", def.ID)
		}
		seen[def.ID] = struct{}{}
	}
}

func TestCatalogThresholds(t *testing.T) {
	stats := domain.StatsSnapshot{TotalSales: 10, Rank: "silver"}

	satisfied := map[string]bool{}
	for _, def := range domain.Catalog() {
		satisfied[def.ID] = def.Condition.Satisfied(stats)
	}

	for _, id := range []string{"first_sale", "ten_sales", "silver_rank"} {
		if !satisfied[id] {
			t.Fatalf("%s should be satisfied at 10 sales on silver", id)
		}
	}
	for _, id := range []string{"fifty_sales", "hundred_sales", "gold_rank", "perfect_rating"} {
		if satisfied[id] {
			t.Fatalf("%s should not be satisfied at 10 sales on silver", id)
		}
	}
}
