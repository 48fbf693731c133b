package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JustJay7/court-registry/internal/report"
	"github.com/spf13/cobra"
)

type reportFlags struct {
	input     string
	output    string
	delimiter string
	format    string
}

func newReportCmd(gf *globalFlags) *cobra.Command {
	var rf reportFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a case report for the case numbers in a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := rf.format
			if format == "" && strings.EqualFold(filepath.Ext(rf.output), ".xlsx") {
				format = string(report.FormatXLSX)
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := openApp(gf)
			if err != nil {
				return err
			}
			defer a.Close()

			delim := rf.delimiter
			if delim == "" {
				delim = a.cfg.ReportDelimiter
			}
			runes := []rune(delim)
			if len(runes) != 1 {
				return fmt.Errorf("delimiter must be a single character, got %q", delim)
			}

			resolver := report.NewResolver(a.db,
				report.WithBatchSize(a.cfg.QueryBatchSize),
				report.WithReportingLabel(a.cfg.ReportingRoleLabel),
			)
			n, err := resolver.Export(cmd.Context(), rf.input, rf.output, report.ExportOptions{
				Format:    f,
				Delimiter: runes[0],
			})
			if err != nil {
				return err
			}

			a.log.Info("Report written", "output", rf.output, "rows", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", n, rf.output)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&rf.input, "input", "i", "", "CSV file with a case_number column (required)")
	fl.StringVarP(&rf.output, "output", "o", "", "report file to write (required)")
	fl.StringVar(&rf.delimiter, "delimiter", "", "CSV output delimiter (overrides REPORT_DELIMITER)")
	fl.StringVar(&rf.format, "format", "", "csv or xlsx; inferred from --output when empty")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
