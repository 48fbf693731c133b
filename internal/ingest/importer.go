package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/JustJay7/court-registry/internal/csvio"
	"github.com/JustJay7/court-registry/internal/normalize"
	"github.com/JustJay7/court-registry/pkg/logger"
	"gorm.io/gorm"
)

// RowSource yields canonical rows in source order and io.EOF at the end.
type RowSource interface {
	Next() (normalize.Row, error)
}

// SliceSource serves rows that are already in memory.
type SliceSource struct {
	rows []normalize.Row
	pos  int
}

func NewSliceSource(rows []normalize.Row) *SliceSource {
	return &SliceSource{rows: rows}
}

func (s *SliceSource) Next() (normalize.Row, error) {
	if s.pos >= len(s.rows) {
		return normalize.Row{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// CSVSource normalises records read from a registry CSV file.
type CSVSource struct {
	r *csvio.Reader
}

func NewCSVSource(r *csvio.Reader) *CSVSource {
	return &CSVSource{r: r}
}

func (s *CSVSource) Next() (normalize.Row, error) {
	fields, err := s.r.Next()
	if err != nil {
		return normalize.Row{}, err
	}
	return normalize.FromRecord(fields), nil
}

// Stats counts what happened to the rows of one import.
type Stats struct {
	Rows        int `json:"rows"`
	Applied     int `json:"applied"`
	Skipped     int `json:"skipped"`
	Links       int `json:"links"`
	FieldErrors int `json:"field_errors"`
}

func (s *Stats) add(o Stats) {
	s.Rows += o.Rows
	s.Applied += o.Applied
	s.Skipped += o.Skipped
	s.Links += o.Links
	s.FieldErrors += o.FieldErrors
}

// Status is the outcome of importing one file.
type Status string

const (
	StatusImported Status = "imported"
	StatusFailed   Status = "failed"
)

// FileResult reports one file's import without raising.
type FileResult struct {
	File     string        `json:"file"`
	Status   Status        `json:"status"`
	Encoding string        `json:"encoding,omitempty"`
	Stats    Stats         `json:"stats"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Summary aggregates a batch of file imports.
type Summary struct {
	Files    []FileResult `json:"files"`
	Imported int          `json:"imported"`
	Failed   int          `json:"failed"`
	Totals   Stats        `json:"totals"`
}

// Importer runs file imports against the registry database. Each import is
// one transaction with its own judge cache.
type Importer struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewImporter(db *gorm.DB, logger *logger.Logger) *Importer {
	return &Importer{db: db, logger: logger}
}

// ImportRows applies every row of src in a single transaction. Rows without
// a case identity are skipped; per-field failures are counted and logged.
// Any other failure rolls the whole import back.
func (im *Importer) ImportRows(ctx context.Context, src RowSource) (Stats, error) {
	var stats Stats

	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u := NewUpserter(tx, JudgeCache{})
		var local Stats

		for line := 1; ; line++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			row, err := src.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("read row %d: %w", line, err)
			}
			local.Rows++

			res, err := u.ApplyRow(row)
			if errors.Is(err, normalize.ErrValidation) {
				local.Skipped++
				im.logger.Debug("Row skipped", "row", line, "reason", err.Error())
				continue
			}
			if err != nil {
				return fmt.Errorf("row %d: %w", line, err)
			}

			local.Applied++
			local.Links += res.Links
			for _, ferr := range res.FieldErrors {
				local.FieldErrors++
				im.logger.Warn("Row field not stored", "row", line, "case_number", row.CaseNumber, "error", ferr)
			}
		}

		stats = local
		return nil
	})
	if err != nil {
		return stats, &IOFailure{Op: "import", Err: err}
	}

	return stats, nil
}

// ImportFile decodes and imports one CSV file. Failures are reported in the
// result, never returned.
func (im *Importer) ImportFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	res := FileResult{File: filepath.Base(path)}

	fail := func(err error) FileResult {
		res.Status = StatusFailed
		res.Err = err
		res.Reason = err.Error()
		res.Duration = time.Since(start)
		im.logger.Error("Import failed", "file", res.File, "error", err)
		return res
	}

	r, err := csvio.Open(path)
	if err != nil {
		var encErr *csvio.EncodingError
		if errors.As(err, &encErr) {
			return fail(err)
		}
		return fail(&IOFailure{Op: "open", Path: path, Err: err})
	}
	res.Encoding = r.Encoding

	stats, err := im.ImportRows(ctx, NewCSVSource(r))
	res.Stats = stats
	if err != nil {
		var ioErr *IOFailure
		if errors.As(err, &ioErr) && ioErr.Path == "" {
			ioErr.Path = path
		}
		return fail(err)
	}

	res.Status = StatusImported
	res.Duration = time.Since(start)
	im.logger.Info("Imported file",
		"file", res.File,
		"encoding", res.Encoding,
		"rows", stats.Rows,
		"skipped", stats.Skipped,
		"field_errors", stats.FieldErrors,
		"duration", res.Duration.String(),
	)
	return res
}

// ImportFiles imports each file on its own; a failing file does not stop the
// rest of the batch.
func (im *Importer) ImportFiles(ctx context.Context, paths []string) Summary {
	var sum Summary
	for _, path := range paths {
		if ctx.Err() != nil {
			sum.add(FileResult{
				File:   filepath.Base(path),
				Status: StatusFailed,
				Reason: ctx.Err().Error(),
				Err:    ctx.Err(),
			})
			continue
		}
		sum.add(im.ImportFile(ctx, path))
	}

	im.logger.Info("Import finished",
		"files", len(sum.Files),
		"imported", sum.Imported,
		"failed", sum.Failed,
		"rows", sum.Totals.Rows,
	)
	return sum
}

// Merge folds another summary into s.
func (s *Summary) Merge(o Summary) {
	s.Files = append(s.Files, o.Files...)
	s.Imported += o.Imported
	s.Failed += o.Failed
	s.Totals.add(o.Totals)
}

func (s *Summary) add(res FileResult) {
	s.Files = append(s.Files, res)
	if res.Status == StatusImported {
		s.Imported++
		s.Totals.add(res.Stats)
	} else {
		s.Failed++
	}
}
