package domain

// VariantSummary holds windowed price statistics for one (item, variant).
// Corresponds to variant_summaries table. Nil prices mean no usable samples.
type VariantSummary struct {
	ItemID     string
	VariantKey string

	RecentLowestPrice *float64
	RecentVolume      int
	RecentObservedAt  *int64 // newest listedAt among recent samples (ms)

	ThreeDayLowestPrice *float64
	ThreeDayVolume      int

	SevenDayLowestPrice *float64
	SevenDayVolume      int

	LastCalculatedAt int64 // Unix ms
}

// Ref returns the (item, variant) pair of the summary.
func (s *VariantSummary) Ref() VariantRef {
	return VariantRef{ItemID: s.ItemID, VariantKey: s.VariantKey}
}

// Item is the minimal backing record for an item identifier.
// Corresponds to items table.
type Item struct {
	ItemID    string
	CreatedAt int64 // Unix ms
}
