package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// writeXLSX writes a single-sheet workbook named after the table. Cells are
// written as the same text the CSV export uses; nulls are empty cells.
func writeXLSX(path string, td tableData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, td.name); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(td.name)
	if err != nil {
		return fmt.Errorf("failed to create sheet stream: %w", err)
	}

	if err := sw.SetRow("A1", toCells(td.headers)); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, record := range td.records() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(record)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func toCells(record []string) []interface{} {
	cells := make([]interface{}, len(record))
	for i, v := range record {
		if v == "" {
			cells[i] = nil
			continue
		}
		cells[i] = v
	}
	return cells
}
