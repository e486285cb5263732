package domain

// Catalog returns the static achievement definitions. The catalog ships
// with the binary so every environment evaluates the same conditions.
func Catalog() []Definition {
	return []Definition{
		{
			ID:        "first_sale",
			Name:      "First Sale",
			Points:    100,
			Condition: FieldGte{Field: FieldTotalSales, Threshold: 1},
		},
		{
			ID:        "ten_sales",
			Name:      "Ten Sales",
			Points:    250,
			Condition: FieldGte{Field: FieldTotalSales, Threshold: 10},
		},
		{
			ID:        "fifty_sales",
			Name:      "Fifty Sales",
			Points:    500,
			Condition: FieldGte{Field: FieldTotalSales, Threshold: 50},
		},
		{
			ID:        "hundred_sales",
			Name:      "Hundred Sales",
			Points:    1000,
			Condition: FieldGte{Field: FieldTotalSales, Threshold: 100},
		},
		{
			ID:        "silver_rank",
			Name:      "Silver Rank",
			Points:    300,
			Condition: FieldEquals{Field: FieldRank, Literal: "silver"},
		},
		{
			ID:        "gold_rank",
			Name:      "Gold Rank",
			Points:    500,
			Condition: FieldEquals{Field: FieldRank, Literal: "gold"},
		},
		{
			ID:        "platinum_rank",
			Name:      "Platinum Rank",
			Points:    750,
			Condition: FieldEquals{Field: FieldRank, Literal: "platinum"},
		},
		{
			ID:        "diamond_rank",
			Name:      "Diamond Rank",
			Points:    1000,
			Condition: FieldEquals{Field: FieldRank, Literal: "diamond"},
		},
		{
			ID:        "perfect_rating",
			Name:      "Perfect Rating",
			Points:    150,
			Condition: FieldGte{Field: FieldAverageRatingCenti, Threshold: 500},
		},
	}
}
