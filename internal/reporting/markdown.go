package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report overview plus the per-item variant
// counts as Markdown. Full rows go to CSV/XLSX.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Variant Price Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Items: %d | Variants: %d\n\n", r.ItemCount, r.Overview.TotalVariants))

	// Overview
	o := r.Overview
	sb.WriteString("## Overview\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Priced (recent) | %d |\n", o.PricedRecent))
	sb.WriteString(fmt.Sprintf("| Priced (3 day) | %d |\n", o.PricedThreeDay))
	sb.WriteString(fmt.Sprintf("| Priced (7 day) | %d |\n", o.PricedSevenDay))
	sb.WriteString(fmt.Sprintf("| Recent Volume | %d |\n", o.TotalRecentVol))
	sb.WriteString(fmt.Sprintf("| Oldest Calculation (ms) | %d |\n", o.OldestCalculated))
	sb.WriteString(fmt.Sprintf("| Newest Calculation (ms) | %d |\n", o.NewestCalculated))
	sb.WriteString("\n")

	if len(r.Rows) == 0 {
		sb.WriteString("No summaries stored.\n")
		return sb.String()
	}

	// Variants per item, rows are already sorted by item
	sb.WriteString("## Items\n\n")
	sb.WriteString("| Item | Variants | Lowest Recent Price |\n")
	sb.WriteString("|------|----------|---------------------|\n")
	for start := 0; start < len(r.Rows); {
		end := start
		var lowest *float64
		for end < len(r.Rows) && r.Rows[end].ItemID == r.Rows[start].ItemID {
			if p := r.Rows[end].RecentLowestPrice; p != nil && (lowest == nil || *p < *lowest) {
				lowest = p
			}
			end++
		}
		price := "-"
		if lowest != nil {
			price = formatPrice(lowest)
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", r.Rows[start].ItemID, end-start, price))
		start = end
	}

	return sb.String()
}
