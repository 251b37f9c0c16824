package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/storage"
)

// Generator produces reports from stored summaries.
type Generator struct {
	summaryStore storage.SummaryStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(summaryStore storage.SummaryStore) *Generator {
	return &Generator{
		summaryStore: summaryStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads all summaries and builds the report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	summaries, err := g.summaryStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}

	rows := make([]SummaryRow, len(summaries))
	items := make(map[string]struct{})
	for i, s := range summaries {
		rows[i] = toRow(s)
		items[s.ItemID] = struct{}{}
	}

	// Stores already order by (item_id, variant_key); sort again so output
	// does not depend on the backend.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ItemID != rows[j].ItemID {
			return rows[i].ItemID < rows[j].ItemID
		}
		return rows[i].VariantKey < rows[j].VariantKey
	})

	return &Report{
		GeneratedAt: g.now(),
		ItemCount:   len(items),
		Overview:    overview(rows),
		Rows:        rows,
	}, nil
}

func toRow(s *domain.VariantSummary) SummaryRow {
	return SummaryRow{
		ItemID:              s.ItemID,
		VariantKey:          s.VariantKey,
		RecentLowestPrice:   s.RecentLowestPrice,
		RecentVolume:        s.RecentVolume,
		RecentObservedAt:    s.RecentObservedAt,
		ThreeDayLowestPrice: s.ThreeDayLowestPrice,
		ThreeDayVolume:      s.ThreeDayVolume,
		SevenDayLowestPrice: s.SevenDayLowestPrice,
		SevenDayVolume:      s.SevenDayVolume,
		LastCalculatedAt:    s.LastCalculatedAt,
	}
}

func overview(rows []SummaryRow) Overview {
	o := Overview{TotalVariants: len(rows)}
	for i, r := range rows {
		if r.RecentLowestPrice != nil {
			o.PricedRecent++
		}
		if r.ThreeDayLowestPrice != nil {
			o.PricedThreeDay++
		}
		if r.SevenDayLowestPrice != nil {
			o.PricedSevenDay++
		}
		o.TotalRecentVol += r.RecentVolume

		if i == 0 || r.LastCalculatedAt < o.OldestCalculated {
			o.OldestCalculated = r.LastCalculatedAt
		}
		if r.LastCalculatedAt > o.NewestCalculated {
			o.NewestCalculated = r.LastCalculatedAt
		}
	}
	return o
}
