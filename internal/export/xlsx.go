package export

import (
	"fmt"
	"io"

	"aircraft_logger/internal/models"

	excelize "github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the records are written to
const SheetName = "Records"

// Columns is the header row of the export
var Columns = []string{
	"ID", "Aircraft Model", "A/C#", "MO#", "Monument#",
	"Start Date", "Finish Date", "Issues", "Notes", "Pictures", "Created At",
}

// WriteXLSX writes records as a spreadsheet, one row per record in the given
// order. Picture payloads are not exported, only their count.
func WriteXLSX(w io.Writer, recs []*models.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			rec.ID,
			string(rec.AircraftModel),
			rec.ACNumber,
			rec.MONumber,
			rec.MonumentNumber,
			rec.StartDate,
			rec.FinishDate,
			rec.Issues,
			rec.Notes,
			len(rec.Pictures),
			rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
