package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JustJay7/court-registry/internal/cache"
	"github.com/JustJay7/court-registry/internal/config"
	"github.com/JustJay7/court-registry/internal/database"
	"github.com/JustJay7/court-registry/internal/report"
	"github.com/JustJay7/court-registry/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const uploadCSV = "court_name;case_number;case_proc;registration_date;judge;judges;participants;stage_date;stage_name;cause_result;cause_dep;type;description\n" +
	"Суд А;100/1/24;1-кп/100/24;05.03.2024;суддя-доповідач: Іваненко О.;Member: Petrenko S.;;06.03.2024;Призначено;;Канцелярія;Кримінальна;Крадіжка\n" +
	"Суд Б;200/2/24;;;;;;;;;;Цивільна;\n"

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, cache.Cache) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Initialize(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	cfg := &config.Config{
		CacheSize:          100,
		CacheTTL:           time.Minute,
		QueryBatchSize:     500,
		ReportDelimiter:    ",",
		ReportingRoleLabel: "суддя-доповідач",
	}

	testCache := cache.NewCache(cfg.CacheSize, cfg.CacheTTL)

	router := gin.New()
	SetupRoutes(router, db, testCache, logger.NewNop(), cfg)

	return router, db, testCache
}

func doJSON(t *testing.T, router *gin.Engine, method, target string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)

	var response map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	}
	return w, response
}

func upload(t *testing.T, router *gin.Engine, target, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w, response := doJSON(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, true, response["database"])
}

func TestCacheStats(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w, response := doJSON(t, router, http.MethodGet, "/api/cache/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, response["success"])
	assert.NotNil(t, response["stats"])
}

func TestImportFileAPI(t *testing.T) {
	router, db, _ := setupTestRouter(t)

	w := upload(t, router, "/api/import", "cases.csv", []byte(uploadCSV))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Success bool `json:"success"`
		Summary struct {
			Imported int `json:"imported"`
			Totals   struct {
				Applied int `json:"applied"`
			} `json:"totals"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, 1, response.Summary.Imported)
	assert.Equal(t, 2, response.Summary.Totals.Applied)

	var cases int64
	require.NoError(t, db.Model(&database.Case{}).Count(&cases).Error)
	assert.Equal(t, int64(2), cases)
}

func TestImportFileAPIZip(t *testing.T) {
	router, db, _ := setupTestRouter(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("inner/cases.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte(uploadCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	w := upload(t, router, "/api/import", "bundle.zip", buf.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cases int64
	require.NoError(t, db.Model(&database.Case{}).Count(&cases).Error)
	assert.Equal(t, int64(2), cases)
}

func TestImportFileAPIRejectsBadUploads(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := upload(t, router, "/api/import", "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, router, "/api/import", "broken.zip", []byte("not a zip"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/import", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportRowsAPI(t *testing.T) {
	router, db, _ := setupTestRouter(t)

	payload, err := json.Marshal([]map[string]any{
		{
			"court_name":        "Суд А",
			"case_number":       100,
			"registration_date": "05.03.2024",
			"judge":             "суддя-доповідач: Іваненко О.",
			"stage_date":        "06.03.2024",
			"stage_name":        "Призначено",
		},
		{"court_name": "", "case_number": "missing-court"},
	})
	require.NoError(t, err)

	w, response := doJSON(t, router, http.MethodPost, "/api/import/rows", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, response["success"])

	stats := response["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["applied"])
	assert.Equal(t, float64(1), stats["skipped"])

	var c database.Case
	require.NoError(t, db.Where("case_number = ?", "100").Take(&c).Error)
	require.NotNil(t, c.RegistrationDate)
	assert.Equal(t, "2024-03-05", *c.RegistrationDate)

	w, _ = doJSON(t, router, http.MethodPost, "/api/import/rows", []byte(`{"not":"a list"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCasesAPI(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, router, "/api/import", "cases.csv", []byte(uploadCSV)).Code)

	w, response := doJSON(t, router, http.MethodGet, "/api/cases?page=1&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["data"], 1)
	pagination := response["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total"])

	w, response = doJSON(t, router, http.MethodGet, "/api/cases?case_number=200/2/24", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := response["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "Суд Б", data[0].(map[string]any)["court_name"])
}

func TestGetReportAPI(t *testing.T) {
	router, _, reportCache := setupTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, router, "/api/import", "cases.csv", []byte(uploadCSV)).Code)

	w, response := doJSON(t, router, http.MethodGet, "/api/report?case_number=100/1/24,unknown", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, response["fromCache"])

	data := response["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	assert.Equal(t, "Іваненко О.", first["reporting_judge"])
	assert.Equal(t, "Member: Petrenko S.", first["panel_judges"])
	assert.Equal(t, "2024-03-06", first["last_stage_date"])
	assert.Equal(t, true, data[1].(map[string]any)["not_found"])

	_, response = doJSON(t, router, http.MethodGet, "/api/report?case_number=100/1/24&case_number=unknown", nil)
	assert.Equal(t, true, response["fromCache"])
	assert.Equal(t, int64(1), reportCache.Stats().Hits)

	w, _ = doJSON(t, router, http.MethodGet, "/api/report", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportClearsReportCache(t *testing.T) {
	router, _, reportCache := setupTestRouter(t)

	doJSON(t, router, http.MethodGet, "/api/report?case_number=100/1/24", nil)
	require.Equal(t, 1, reportCache.Stats().Size)

	require.Equal(t, http.StatusOK, upload(t, router, "/api/import", "cases.csv", []byte(uploadCSV)).Code)
	assert.Equal(t, 0, reportCache.Stats().Size)

	_, response := doJSON(t, router, http.MethodGet, "/api/report?case_number=100/1/24", nil)
	data := response["data"].([]any)
	assert.Equal(t, false, data[0].(map[string]any)["not_found"])
}

func TestReportResolvedBeforeImportIsNotCached(t *testing.T) {
	db, err := database.Initialize(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	defer database.Close(db)

	reportCache := cache.NewCache(10, time.Minute)
	h := NewHandlers(db, reportCache, logger.NewNop(), &config.Config{
		QueryBatchSize:     500,
		ReportDelimiter:    ",",
		ReportingRoleLabel: "суддя-доповідач",
	})
	rows := []report.Row{{CaseNumber: "100/1/24", NotFound: true}}

	// A lookup starts, then an import commits before it is stored.
	before := h.cacheGeneration()
	h.invalidateReports()

	assert.False(t, h.storeReport("report:100/1/24", rows, before))
	assert.Equal(t, 0, reportCache.Stats().Size)

	assert.True(t, h.storeReport("report:100/1/24", rows, h.cacheGeneration()))
	assert.Equal(t, 1, reportCache.Stats().Size)
}

func TestExportReportAPI(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, router, "/api/import", "cases.csv", []byte(uploadCSV)).Code)

	input := []byte("case_number\n200/2/24\n")

	w := upload(t, router, "/api/report?delimiter=%3B", "numbers.csv", input)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	body := strings.TrimPrefix(w.Body.String(), "\ufeff")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "court_name;case_number;"))
	assert.True(t, strings.HasPrefix(lines[1], "Суд Б;200/2/24;"))

	w = upload(t, router, "/api/report?format=xlsx", "numbers.csv", input)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("report")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "200/2/24", rows[1][1])

	w = upload(t, router, "/api/report?format=pdf", "numbers.csv", input)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, router, "/api/report?delimiter=ab", "numbers.csv", input)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
