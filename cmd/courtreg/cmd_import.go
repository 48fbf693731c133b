package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JustJay7/court-registry/internal/ingest"
	"github.com/JustJay7/court-registry/internal/registry"
	"github.com/spf13/cobra"
)

func newImportCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv|archive.zip>...",
		Short: "Import registry CSV files or ZIP archives of them",
		Long: "Each CSV file is imported in its own transaction. A file that fails\n" +
			"is reported and skipped; the remaining files are still imported.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(gf)
			if err != nil {
				return err
			}
			defer a.Close()

			im := ingest.NewImporter(a.db, a.log)
			sum, err := importPaths(cmd.Context(), im, args)
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), sum)
			if sum.Failed > 0 {
				return fmt.Errorf("%d of %d files failed to import", sum.Failed, len(sum.Files))
			}
			return nil
		},
	}
}

// importPaths imports CSV files directly and ZIP archives through a
// temporary extraction directory.
func importPaths(ctx context.Context, im *ingest.Importer, paths []string) (ingest.Summary, error) {
	var sum ingest.Summary
	var csvs []string

	flush := func() {
		if len(csvs) > 0 {
			sum.Merge(im.ImportFiles(ctx, csvs))
			csvs = nil
		}
	}

	for _, path := range paths {
		if !strings.EqualFold(filepath.Ext(path), ".zip") {
			csvs = append(csvs, path)
			continue
		}
		flush()

		tmp, err := os.MkdirTemp("", "court_zip_")
		if err != nil {
			return sum, fmt.Errorf("failed to create temp directory: %w", err)
		}
		res, err := registry.ImportArchive(ctx, im, path, tmp)
		os.RemoveAll(tmp)
		if err != nil {
			sum.Merge(ingest.Summary{
				Files:  []ingest.FileResult{{File: filepath.Base(path), Status: ingest.StatusFailed, Reason: err.Error(), Err: err}},
				Failed: 1,
			})
			continue
		}
		sum.Merge(res)
	}
	flush()

	return sum, nil
}

func printSummary(w io.Writer, sum ingest.Summary) {
	for _, f := range sum.Files {
		if f.Status == ingest.StatusImported {
			fmt.Fprintf(w, "  %-40s %-8s %s rows=%d skipped=%d field_errors=%d\n",
				f.File, f.Status, f.Encoding, f.Stats.Rows, f.Stats.Skipped, f.Stats.FieldErrors)
		} else {
			fmt.Fprintf(w, "  %-40s %-8s %s\n", f.File, f.Status, f.Reason)
		}
	}
	fmt.Fprintf(w, "Imported %d, failed %d; rows %d, applied %d, skipped %d\n",
		sum.Imported, sum.Failed, sum.Totals.Rows, sum.Totals.Applied, sum.Totals.Skipped)
}
