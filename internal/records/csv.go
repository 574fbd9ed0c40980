package records

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"aircraft_logger/internal/form"
	"aircraft_logger/internal/models"
)

// CSVColumns is the header understood by ImportCSV. Column order does not matter.
var CSVColumns = []string{
	"aircraftModel", "acNumber", "moNumber", "monumentNumber",
	"startDate", "finishDate", "issues", "notes",
}

// ImportCSV loads records from one or more CSV files with a CSVColumns header.
// Rows without an A/C# are skipped, as are rows that fail form validation.
// Accepted rows get fresh ids and timestamps and are inserted batchSize at a time.
func (s *Service) ImportCSV(ctx context.Context, csvPaths []string, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	imported := 0
	batch := make([]*models.Record, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.store.InsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		imported += len(batch)
		slog.Info("Imported batch of records", "batch_size", len(batch), "total", imported)
		batch = batch[:0]
		return nil
	}

	for _, csvPath := range csvPaths {
		err := func() error {
			file, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("failed to open CSV file %s: %w", csvPath, err)
			}
			defer file.Close()

			return readCSV(file, csvPath, func(line int, fields models.RecordFields) error {
				if errs := form.Validate(fields); len(errs) > 0 {
					slog.Warn("Skipping invalid CSV row", "file", csvPath, "line", line, "errors", errs)
					return nil
				}
				batch = append(batch, models.NewRecord(s.newID(), s.now(), fields))
				if len(batch) >= batchSize {
					return flush()
				}
				return nil
			})
		}()
		if err != nil {
			return imported, err
		}
	}

	if err := flush(); err != nil {
		return imported, err
	}
	return imported, nil
}

// readCSV calls fn for every row of r that has an A/C#
func readCSV(r io.Reader, name string, fn func(line int, fields models.RecordFields) error) error {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true    // spreadsheet exports quote inconsistently
	reader.FieldsPerRecord = -1 // trailing empty columns are often dropped

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read CSV header from %s: %w", name, err)
	}

	headerMap := make(map[string]int, len(header))
	for i, h := range header {
		headerMap[strings.Trim(strings.TrimSpace(h), "'\"")] = i
	}
	if _, ok := headerMap["acNumber"]; !ok {
		return fmt.Errorf("CSV file %s has no acNumber column", name)
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record from %s: %w", name, err)
		}
		line++

		fields := models.RecordFields{
			AircraftModel:  models.ModelGlobal,
			ACNumber:       getField(record, headerMap, "acNumber"),
			MONumber:       getField(record, headerMap, "moNumber"),
			MonumentNumber: getField(record, headerMap, "monumentNumber"),
			StartDate:      getField(record, headerMap, "startDate"),
			FinishDate:     getField(record, headerMap, "finishDate"),
			Issues:         getField(record, headerMap, "issues"),
			Notes:          getField(record, headerMap, "notes"),
			Pictures:       []models.Picture{},
		}
		if raw := getField(record, headerMap, "aircraftModel"); raw != "" {
			fields.AircraftModel = models.AircraftModel(raw)
			if m, err := models.ParseAircraftModel(raw); err == nil {
				fields.AircraftModel = m
			}
		}

		if fields.ACNumber == "" {
			continue
		}

		if err := fn(line, fields); err != nil {
			return err
		}
	}
}

// getField safely retrieves a field from a CSV record by header name
func getField(record []string, headerMap map[string]int, fieldName string) string {
	if idx, ok := headerMap[fieldName]; ok && idx < len(record) {
		return strings.Trim(strings.TrimSpace(record[idx]), "'\"")
	}
	return ""
}
