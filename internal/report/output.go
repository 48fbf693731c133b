package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JustJay7/court-registry/internal/csvio"
	"github.com/xuri/excelize/v2"
)

// Format selects the report file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

const sheetName = "report"

// ReadCaseNumbers extracts the case number column from an input CSV. The
// column is matched by name case-insensitively, falling back to the first
// column.
func ReadCaseNumbers(path string) ([]string, error) {
	r, err := csvio.Open(path)
	if err != nil {
		return nil, err
	}
	return readCaseNumbers(r)
}

// ParseCaseNumbers is ReadCaseNumbers for data already in memory.
func ParseCaseNumbers(name string, data []byte) ([]string, error) {
	r, err := csvio.NewReader(name, data)
	if err != nil {
		return nil, err
	}
	return readCaseNumbers(r)
}

func readCaseNumbers(r *csvio.Reader) ([]string, error) {
	col := r.Column("case_number")
	if col < 0 {
		col = 0
	}

	var numbers []string
	for {
		rec, err := r.NextRecord()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if col < len(rec) {
			numbers = append(numbers, rec[col])
		}
	}
	return numbers, nil
}

// WriteCSV writes rows with a UTF-8 byte-order mark, so spreadsheet tools
// detect the encoding.
func WriteCSV(w io.Writer, rows []Row, delimiter rune) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		rec := row.Record()
		values := make([]interface{}, len(rec))
		for j, v := range rec {
			values[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

// Write renders rows in the requested format.
func Write(w io.Writer, rows []Row, format Format, delimiter rune) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, rows)
	default:
		return WriteCSV(w, rows, delimiter)
	}
}

// ExportOptions controls Export.
type ExportOptions struct {
	Format    Format
	Delimiter rune
}

// Export reads case numbers from input, resolves them and writes the report
// to output.
func (r *Resolver) Export(ctx context.Context, input, output string, opts ExportOptions) (int, error) {
	numbers, err := ReadCaseNumbers(input)
	if err != nil {
		return 0, fmt.Errorf("read input %s: %w", input, err)
	}

	rows, err := r.Resolve(ctx, numbers)
	if err != nil {
		return 0, err
	}

	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(output)
	if err != nil {
		return 0, fmt.Errorf("create output %s: %w", output, err)
	}
	if err := Write(f, rows, opts.Format, opts.Delimiter); err != nil {
		f.Close()
		return 0, fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, err
	}

	return len(rows), nil
}
