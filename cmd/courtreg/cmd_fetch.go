package main

import (
	"fmt"
	"time"

	"github.com/JustJay7/court-registry/internal/ingest"
	"github.com/JustJay7/court-registry/internal/registry"
	"github.com/spf13/cobra"
)

type fetchFlags struct {
	year      int
	maxPages  int
	chunkSize int
}

func newFetchCmd(gf *globalFlags) *cobra.Command {
	var ff fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and import a year's archives from the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(gf)
			if err != nil {
				return err
			}
			defer a.Close()

			maxPages := a.cfg.RegistryMaxPages
			if cmd.Flags().Changed("max-pages") {
				maxPages = ff.maxPages
			}
			chunkMB := a.cfg.DownloadChunkMB
			if cmd.Flags().Changed("chunk-size") {
				chunkMB = ff.chunkSize
			}

			browser, err := registry.NewBrowser(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer browser.Close()

			syncer := registry.NewSyncer(
				registry.NewCrawler(browser, a.cfg.RegistryListURL, maxPages, a.log),
				registry.NewDownloader(a.cfg.DownloadTimeout, a.cfg.UserAgent, chunkMB, a.log),
				ingest.NewImporter(a.db, a.log),
				a.cfg.WorkDir,
				a.log,
			)

			res, err := syncer.Run(cmd.Context(), ff.year)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Year %d: %d archives, %d failed\n", res.Year, res.Archives, len(res.Failures))
			for _, f := range res.Failures {
				fmt.Fprintf(out, "  %s: %s\n", f.URL, f.Reason)
			}
			printSummary(out, res.Import)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&ff.year, "year", time.Now().Year(), "publication year to fetch")
	f.IntVar(&ff.maxPages, "max-pages", 50, "maximum listing pages to scan (overrides REGISTRY_MAX_PAGES)")
	f.IntVar(&ff.chunkSize, "chunk-size", 1, "download write buffer in MB (overrides DOWNLOAD_CHUNK_MB)")

	return cmd
}
