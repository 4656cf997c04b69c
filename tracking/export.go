/*
export.go - xlsx rendering of a ProjectTracking aggregate

PURPOSE:
  Renders the reporting aggregate into a two-sheet workbook for the
  people who actually consume these numbers: a Summary sheet with grand
  totals and the status buckets, and a Subcontractors sheet with the
  ordered per-subcontractor rollup.

  Monetary cells are written as float64 of already-exact decimals; the
  workbook is a presentation artifact, the decimals remain the truth.

SEE ALSO:
  - tracking.go: the aggregate being rendered
*/
package tracking

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// XLSX EXPORT
// =============================================================================

const (
	sheetSummary        = "Summary"
	sheetSubcontractors = "Subcontractors"
)

// WriteXLSX renders the aggregate as an xlsx workbook to w.
func WriteXLSX(tr *ProjectTracking, w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeSummarySheet(f, tr); err != nil {
		return err
	}
	if err := writeSubcontractorSheet(f, tr); err != nil {
		return err
	}

	// Drop the default sheet and lead with the summary.
	if err := f.DeleteSheet(f.GetSheetName(0)); err == nil {
		idx, _ := f.GetSheetIndex(sheetSummary)
		f.SetActiveSheet(idx)
	}

	return f.Write(w)
}

func writeSummarySheet(f *excelize.File, tr *ProjectTracking) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"", "hours", "cost", "billing", "margin", "margin_pct", "entries"},
		totalsRow("total", tr.Totals),
		totalsRow("draft", tr.ByStatus.Draft),
		totalsRow("submitted", tr.ByStatus.Submitted),
		totalsRow("approved", tr.ByStatus.Approved),
		{"excluded_entries", tr.ExcludedEntries},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeSubcontractorSheet(f *excelize.File, tr *ProjectTracking) error {
	if _, err := f.NewSheet(sheetSubcontractors); err != nil {
		return err
	}

	header := []interface{}{
		"subcontractor_id", "name", "hours", "total_cost",
		"total_billing", "total_margin", "margin_pct", "entries",
	}
	if err := f.SetSheetRow(sheetSubcontractors, "A1", &header); err != nil {
		return err
	}

	for i, s := range tr.Subcontractors {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			s.SubcontractorID,
			s.Name,
			toFloat(s.Hours),
			toFloat(s.Cost),
			toFloat(s.Billing),
			toFloat(s.Margin),
			toFloat(s.MarginPct()),
			s.Entries,
		}
		if err := f.SetSheetRow(sheetSubcontractors, cell, &row); err != nil {
			return fmt.Errorf("writing subcontractor row %d: %w", i+2, err)
		}
	}
	return nil
}

func totalsRow(label string, t Totals) []interface{} {
	return []interface{}{
		label,
		toFloat(t.Hours),
		toFloat(t.Cost),
		toFloat(t.Billing),
		toFloat(t.Margin),
		toFloat(t.MarginPct()),
		t.Entries,
	}
}

func toFloat(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}
