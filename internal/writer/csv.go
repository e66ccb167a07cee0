package writer

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/insightdelivered/statement-categorizer/internal/models"
)

// csvRow is the result contract: one row per transaction.
type csvRow struct {
	Date       string `csv:"date"`
	Descriptor string `csv:"descriptor"`
	Amount     string `csv:"amount"`
	Category   string `csv:"category"`
}

// CSVWriter writes a run's transactions as CSV.
type CSVWriter struct {
	// IncludeHeader prefixes the table with "# key,value" metadata rows.
	IncludeHeader bool
}

// WriteToFile writes the result to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, result *models.RunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, result)
}

// Write writes the result in CSV format to out. Dates are ISO 8601 and
// amounts carry two decimals.
func (w *CSVWriter) Write(out io.Writer, result *models.RunResult) error {
	csvWriter := gocsv.DefaultCSVWriter(out)

	if w.IncludeHeader {
		meta := [][]string{
			{"# Issuer", string(result.Issuer)},
			{"# Run ID", result.RunID},
			{"# Documents", fmt.Sprint(len(result.Documents))},
		}
		for _, row := range meta {
			if row[1] == "" {
				continue
			}
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	rows := make([]csvRow, 0, len(result.Transactions))
	for _, tx := range result.Transactions {
		rows = append(rows, csvRow{
			Date:       tx.Date.Format("2006-01-02"),
			Descriptor: tx.Descriptor,
			Amount:     tx.Amount.StringFixed(2),
			Category:   tx.Category,
		})
	}

	if err := gocsv.MarshalCSV(rows, csvWriter); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}
