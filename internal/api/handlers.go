package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JustJay7/court-registry/internal/cache"
	"github.com/JustJay7/court-registry/internal/config"
	"github.com/JustJay7/court-registry/internal/database"
	"github.com/JustJay7/court-registry/internal/ingest"
	"github.com/JustJay7/court-registry/internal/normalize"
	"github.com/JustJay7/court-registry/internal/registry"
	"github.com/JustJay7/court-registry/internal/report"
	"github.com/JustJay7/court-registry/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxListLimit = 100

// Handlers holds all HTTP handlers
type Handlers struct {
	db       *gorm.DB
	cache    cache.Cache
	importer *ingest.Importer
	resolver *report.Resolver
	logger   *logger.Logger
	cfg      *config.Config

	// imports write through one connection; run them one at a time
	importMu sync.Mutex

	// generation counts cache invalidations, so a report resolved before an
	// import committed is not stored after the cache was cleared.
	cacheMu    sync.Mutex
	generation uint64
}

// NewHandlers creates a new handlers instance
func NewHandlers(db *gorm.DB, cache cache.Cache, logger *logger.Logger, cfg *config.Config) *Handlers {
	return &Handlers{
		db:       db,
		cache:    cache,
		importer: ingest.NewImporter(db, logger),
		resolver: report.NewResolver(db,
			report.WithBatchSize(cfg.QueryBatchSize),
			report.WithReportingLabel(cfg.ReportingRoleLabel),
		),
		logger: logger,
		cfg:    cfg,
	}
}

// HealthCheck returns the health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	var count int64
	dbHealthy := h.db.Model(&database.Case{}).Count(&count).Error == nil

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": dbHealthy,
		"cases":    count,
		"cache":    h.cache.Stats(),
		"time":     time.Now().Unix(),
	})
}

// CacheStats returns cache statistics
func (h *Handlers) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.cache.Stats(),
	})
}

// ListCasesAPI returns stored cases, optionally filtered by case number.
func (h *Handlers) ListCasesAPI(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := (page - 1) * limit

	query := h.db.WithContext(c.Request.Context()).Model(&database.Case{})
	if number := strings.TrimSpace(c.Query("case_number")); number != "" {
		query = query.Where("case_number = ?", number)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		h.internalError(c, "Failed to count cases", err)
		return
	}

	var cases []database.Case
	if err := query.Order("id").Offset(offset).Limit(limit).Find(&cases).Error; err != nil {
		h.internalError(c, "Failed to list cases", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cases,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetReportAPI resolves the case_number query values to report rows.
func (h *Handlers) GetReportAPI(c *gin.Context) {
	var numbers []string
	for _, v := range c.QueryArray("case_number") {
		numbers = append(numbers, strings.Split(v, ",")...)
	}
	numbers = report.DedupNumbers(numbers)
	if len(numbers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Missing required parameter: case_number",
		})
		return
	}

	cacheKey := cache.GenerateCacheKey(numbers)
	if rows, found := h.cache.Get(cacheKey); found {
		h.logger.Debug("Cache hit", "key", cacheKey)
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"data":      rows,
			"fromCache": true,
		})
		return
	}

	gen := h.cacheGeneration()
	rows, err := h.resolver.Resolve(c.Request.Context(), numbers)
	if err != nil {
		h.internalError(c, "Failed to build report", err)
		return
	}
	h.storeReport(cacheKey, rows, gen)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      rows,
		"fromCache": false,
	})
}

// ExportReportAPI builds a report for the case numbers in an uploaded CSV
// and returns it as a file download.
func (h *Handlers) ExportReportAPI(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	delimiter := []rune(h.cfg.ReportDelimiter)[0]
	if d := c.Query("delimiter"); d != "" {
		r := []rune(d)
		if len(r) != 1 {
			h.badRequest(c, "delimiter must be a single character")
			return
		}
		delimiter = r[0]
	}

	name, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	numbers, err := report.ParseCaseNumbers(name, data)
	if err != nil {
		h.badRequest(c, "Failed to read case numbers: "+err.Error())
		return
	}

	rows, err := h.resolver.Resolve(c.Request.Context(), numbers)
	if err != nil {
		h.internalError(c, "Failed to build report", err)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, rows, format, delimiter); err != nil {
		h.internalError(c, "Failed to write report", err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == report.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report.%s"`, format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// ImportFileAPI imports an uploaded registry CSV file or ZIP archive.
func (h *Handlers) ImportFileAPI(c *gin.Context) {
	name, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".csv" && ext != ".zip" {
		h.badRequest(c, "file must be a .csv or .zip")
		return
	}

	tmp, err := os.MkdirTemp("", "court_upload_")
	if err != nil {
		h.internalError(c, "Failed to stage upload", err)
		return
	}
	defer os.RemoveAll(tmp)

	path := filepath.Join(tmp, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		h.internalError(c, "Failed to stage upload", err)
		return
	}

	h.importMu.Lock()
	defer h.importMu.Unlock()

	ctx := c.Request.Context()
	var sum ingest.Summary
	if ext == ".zip" {
		sum, err = registry.ImportArchive(ctx, h.importer, path, filepath.Join(tmp, "extracted"))
		if err != nil {
			h.badRequest(c, "Failed to unpack archive: "+err.Error())
			return
		}
	} else {
		sum = h.importer.ImportFiles(ctx, []string{path})
	}

	if sum.Imported > 0 {
		h.invalidateReports()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": sum.Failed == 0,
		"summary": sum,
	})
}

// ImportRowsAPI imports a JSON array of loosely typed registry rows.
func (h *Handlers) ImportRowsAPI(c *gin.Context) {
	var payload []map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.badRequest(c, "Invalid request: "+err.Error())
		return
	}

	rows := make([]normalize.Row, 0, len(payload))
	for _, values := range payload {
		rows = append(rows, normalize.FromValues(values))
	}

	h.importMu.Lock()
	defer h.importMu.Unlock()

	stats, err := h.importer.ImportRows(c.Request.Context(), ingest.NewSliceSource(rows))
	if err != nil {
		h.internalError(c, "Import failed", err)
		return
	}
	if stats.Applied > 0 {
		h.invalidateReports()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

func (h *Handlers) cacheGeneration() uint64 {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	return h.generation
}

// storeReport caches rows unless the cache was invalidated since gen.
func (h *Handlers) storeReport(key string, rows []report.Row, gen uint64) bool {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()

	if h.generation != gen {
		h.logger.Debug("Report outdated by an import, not cached", "key", key)
		return false
	}
	h.cache.Set(key, rows)
	return true
}

func (h *Handlers) invalidateReports() {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()

	h.generation++
	h.cache.Clear()
}

func (h *Handlers) readUpload(c *gin.Context) (string, []byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "Missing upload field: file")
		return "", nil, false
	}

	f, err := fh.Open()
	if err != nil {
		h.internalError(c, "Failed to open upload", err)
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.internalError(c, "Failed to read upload", err)
		return "", nil, false
	}
	return fh.Filename, data, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}

func (h *Handlers) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)

	var ioErr *ingest.IOFailure
	if errors.As(err, &ioErr) {
		msg = msg + ": " + ioErr.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   msg,
	})
}
