package domain

import (
	"fmt"
	"strings"
)

// FieldGte is satisfied when a numeric stat reaches a threshold.
type FieldGte struct {
	Field     StatField
	Threshold int64
}

func (p FieldGte) Satisfied(stats StatsSnapshot) bool {
	value, ok := numericField(stats, p.Field)
	if !ok {
		return false
	}
	return value >= p.Threshold
}

func (p FieldGte) Describe() string {
	return fmt.Sprintf("%s >= %d", p.Field, p.Threshold)
}

// FieldEquals is satisfied when a string stat matches a literal.
type FieldEquals struct {
	Field   StatField
	Literal string
}

func (p FieldEquals) Satisfied(stats StatsSnapshot) bool {
	if p.Field != FieldRank {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(stats.Rank), strings.TrimSpace(p.Literal))
}

func (p FieldEquals) Describe() string {
	return fmt.Sprintf("%s == %s", p.Field, p.Literal)
}

func numericField(stats StatsSnapshot, field StatField) (int64, bool) {
	switch field {
	case FieldTotalSales:
		return stats.TotalSales, true
	case FieldTotalRevenue:
		return stats.TotalRevenue, true
	case FieldGamificationPoints:
		return stats.GamificationPoints, true
	case FieldAverageRatingCenti:
		return stats.AverageRatingCenti, true
	default:
		return 0, false
	}
}
