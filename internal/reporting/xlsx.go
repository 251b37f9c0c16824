package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX export.
const (
	SheetOverview  = "Overview"
	SheetSummaries = "Summaries"
)

// WriteXLSX writes the report as a workbook with an overview sheet and a
// summaries sheet holding one row per variant.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the overview.
	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeOverviewSheet(f, r); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSummaries); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeSummarySheet(f, r); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeOverviewSheet(f *excelize.File, r *Report) error {
	o := r.Overview
	pairs := [][]interface{}{
		{"generated_at", r.GeneratedAt.Format(time.RFC3339)},
		{"items", r.ItemCount},
		{"variants", o.TotalVariants},
		{"priced_recent", o.PricedRecent},
		{"priced_three_day", o.PricedThreeDay},
		{"priced_seven_day", o.PricedSevenDay},
		{"total_recent_volume", o.TotalRecentVol},
		{"oldest_calculated_at", o.OldestCalculated},
		{"newest_calculated_at", o.NewestCalculated},
	}
	for i, p := range pairs {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := p
		if err := f.SetSheetRow(SheetOverview, cell, &row); err != nil {
			return fmt.Errorf("write overview row %d: %w", i+1, err)
		}
	}
	return f.SetColWidth(SheetOverview, "A", "A", 24)
}

func writeSummarySheet(f *excelize.File, r *Report) error {
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetSummaries, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummaries, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range r.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.ItemID,
			row.VariantKey,
			priceValue(row.RecentLowestPrice),
			row.RecentVolume,
			millisValue(row.RecentObservedAt),
			priceValue(row.ThreeDayLowestPrice),
			row.ThreeDayVolume,
			priceValue(row.SevenDayLowestPrice),
			row.SevenDayVolume,
			row.LastCalculatedAt,
		}
		if err := f.SetSheetRow(SheetSummaries, cell, &values); err != nil {
			return fmt.Errorf("write row %s/%s: %w", row.ItemID, row.VariantKey, err)
		}
	}

	return f.SetColWidth(SheetSummaries, "A", "B", 32)
}

// priceValue and millisValue return nil for missing values so the cell stays empty.
func priceValue(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func millisValue(ms *int64) interface{} {
	if ms == nil {
		return nil
	}
	return *ms
}
