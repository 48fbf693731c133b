package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JustJay7/court-registry/internal/ingest"
	"github.com/JustJay7/court-registry/pkg/logger"
)

// ArchiveFailure names an archive that could not be fetched or unpacked.
type ArchiveFailure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// SyncResult summarises one yearly sync.
type SyncResult struct {
	Year     int              `json:"year"`
	Archives int              `json:"archives"`
	Failures []ArchiveFailure `json:"failures"`
	Import   ingest.Summary   `json:"import"`
}

// Syncer downloads a year's archives one at a time, imports their CSV files
// and removes the downloaded data afterwards.
type Syncer struct {
	crawler    *Crawler
	downloader *Downloader
	importer   *ingest.Importer
	workDir    string
	logger     *logger.Logger
}

func NewSyncer(crawler *Crawler, downloader *Downloader, importer *ingest.Importer, workDir string, logger *logger.Logger) *Syncer {
	return &Syncer{
		crawler:    crawler,
		downloader: downloader,
		importer:   importer,
		workDir:    workDir,
		logger:     logger,
	}
}

// Run imports every archive published in year. Archive and file failures are
// recorded in the result; only a failure to list the archives is returned.
func (s *Syncer) Run(ctx context.Context, year int) (SyncResult, error) {
	res := SyncResult{Year: year}

	links, err := s.crawler.YearArchives(ctx, year)
	if err != nil {
		return res, fmt.Errorf("list archives for %d: %w", year, err)
	}
	if len(links) == 0 {
		s.logger.Warn("No archives found", "year", year)
		return res, nil
	}

	if err := os.MkdirAll(s.workDir, 0755); err != nil {
		return res, fmt.Errorf("failed to create work directory: %w", err)
	}

	for _, link := range links {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Archives++

		sum, err := s.syncArchive(ctx, link)
		if err != nil {
			s.logger.Error("Archive failed", "url", link, "error", err)
			res.Failures = append(res.Failures, ArchiveFailure{URL: link, Reason: err.Error()})
			continue
		}
		res.Import.Merge(sum)
	}

	s.logger.Info("Sync finished",
		"year", year,
		"archives", res.Archives,
		"archive_failures", len(res.Failures),
		"files_imported", res.Import.Imported,
		"files_failed", res.Import.Failed,
	)
	return res, nil
}

func (s *Syncer) syncArchive(ctx context.Context, link string) (ingest.Summary, error) {
	tmp, err := os.MkdirTemp(s.workDir, "court_zip_")
	if err != nil {
		return ingest.Summary{}, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	zipPath, err := s.downloader.Download(ctx, link, tmp)
	if err != nil {
		return ingest.Summary{}, err
	}

	return ImportArchive(ctx, s.importer, zipPath, filepath.Join(tmp, "extracted"))
}

// ImportArchive extracts the CSV files of a local archive into extractDir and
// imports each of them.
func ImportArchive(ctx context.Context, im *ingest.Importer, zipPath, extractDir string) (ingest.Summary, error) {
	stem := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	files, err := ExtractCSVs(zipPath, filepath.Join(extractDir, stem))
	if err != nil {
		return ingest.Summary{}, err
	}
	return im.ImportFiles(ctx, files), nil
}
