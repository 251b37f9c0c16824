package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes the summary rows as CSV with a header line.
// Missing prices and timestamps are written as empty fields.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range r.Rows {
		record := []string{
			row.ItemID,
			row.VariantKey,
			formatPrice(row.RecentLowestPrice),
			strconv.Itoa(row.RecentVolume),
			formatMillis(row.RecentObservedAt),
			formatPrice(row.ThreeDayLowestPrice),
			strconv.Itoa(row.ThreeDayVolume),
			formatPrice(row.SevenDayLowestPrice),
			strconv.Itoa(row.SevenDayVolume),
			strconv.FormatInt(row.LastCalculatedAt, 10),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s/%s: %w", row.ItemID, row.VariantKey, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func formatMillis(ms *int64) string {
	if ms == nil {
		return ""
	}
	return strconv.FormatInt(*ms, 10)
}
