package reporting

import "time"

// Report is a snapshot of every stored variant summary.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	ItemCount   int

	// Overview
	Overview Overview

	// Summary rows sorted by (item_id, variant_key)
	Rows []SummaryRow
}

// Overview holds totals across all summaries.
type Overview struct {
	TotalVariants    int
	PricedRecent     int // variants with a recent lowest price
	PricedThreeDay   int
	PricedSevenDay   int
	TotalRecentVol   int
	OldestCalculated int64 // Unix ms, 0 when empty
	NewestCalculated int64 // Unix ms, 0 when empty
}

// SummaryRow represents one row of the summaries table.
// Nil prices mean the window had no usable samples.
type SummaryRow struct {
	ItemID     string
	VariantKey string

	RecentLowestPrice *float64
	RecentVolume      int
	RecentObservedAt  *int64

	ThreeDayLowestPrice *float64
	ThreeDayVolume      int

	SevenDayLowestPrice *float64
	SevenDayVolume      int

	LastCalculatedAt int64
}

// columns is the shared header of the CSV and XLSX exports.
var columns = []string{
	"item_id", "variant_key",
	"recent_lowest_price", "recent_volume", "recent_observed_at",
	"three_day_lowest_price", "three_day_volume",
	"seven_day_lowest_price", "seven_day_volume",
	"last_calculated_at",
}
