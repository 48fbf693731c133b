package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JustJay7/court-registry/internal/database"
	"github.com/JustJay7/court-registry/internal/ingest"
	"github.com/JustJay7/court-registry/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db
}

func seed(t *testing.T, db *gorm.DB, records ...map[string]string) {
	t.Helper()
	u := ingest.NewUpserter(db, nil)
	for _, rec := range records {
		_, err := u.ApplyRow(normalize.FromRecord(rec))
		require.NoError(t, err)
	}
}

func TestResolveAggregatesJudgesByRole(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, map[string]string{
		"court_name":  "Court A",
		"case_number": "100/1/24",
		"judge":       "Reporting judge: Ivanenko O.",
		"judges":      "Member: Petrenko S.; Member: Sidorenko T.; Member: Petrenko S.",
	})

	r := NewResolver(db, WithReportingLabel("reporting judge"))
	rows, err := r.Resolve(context.Background(), []string{"100/1/24"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "Ivanenko O.", rows[0].ReportingJudge)
	assert.Equal(t, "Member: Petrenko S.; Member: Sidorenko T.", rows[0].PanelJudges)
	assert.False(t, rows[0].NotFound)
}

func TestResolveDefaultReportingLabel(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, map[string]string{
		"court_name":  "Суд",
		"case_number": "1",
		"judges":      "Суддя-доповідач: Іваненко О.; Іваненко О.; Суддя-учасник колегії: Петренко С.",
	})

	rows, err := NewResolver(db).Resolve(context.Background(), []string{"1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "Іваненко О.", rows[0].ReportingJudge)
	assert.Equal(t, "Іваненко О.; Суддя-учасник колегії: Петренко С.", rows[0].PanelJudges)
}

func TestResolveNotFound(t *testing.T) {
	rows, err := NewResolver(newTestDB(t)).Resolve(context.Background(), []string{"404/24"})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, Row{CaseNumber: "404/24", NotFound: true}, rows[0])
	assert.Equal(t, "1", rows[0].Record()[len(Header)-1])
}

func TestResolveFansOutAcrossCourts(t *testing.T) {
	db := newTestDB(t)
	seed(t, db,
		map[string]string{"court_name": "Court A", "case_number": "7/24"},
		map[string]string{"court_name": "Court B", "case_number": "7/24"},
	)

	rows, err := NewResolver(db).Resolve(context.Background(), []string{"7/24", " 7/24 ", "", "8/24"})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Court A", rows[0].CourtName)
	assert.Equal(t, "Court B", rows[1].CourtName)
	for _, row := range rows[:2] {
		assert.Equal(t, "7/24", row.CaseNumber)
		assert.False(t, row.NotFound)
	}
	assert.True(t, rows[2].NotFound)
}

func TestResolvePicksLatestEvent(t *testing.T) {
	db := newTestDB(t)
	seed(t, db,
		map[string]string{"court_name": "Court", "case_number": "1", "case_proc": "p1", "stage_date": "01.01.2023", "stage_name": "first"},
		map[string]string{"court_name": "Court", "case_number": "1", "case_proc": "p2", "stage_date": "01.01.2023", "stage_name": "second"},
		map[string]string{"court_name": "Court", "case_number": "1", "case_proc": "p3", "stage_name": "undated"},
		map[string]string{"court_name": "Court", "case_number": "1", "stage_date": "31.12.2022", "stage_name": "older"},
	)

	rows, err := NewResolver(db, WithBatchSize(1)).Resolve(context.Background(), []string{"1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "2023-01-01", rows[0].LastStageDate)
	assert.Equal(t, "second", rows[0].LastStageName)
	assert.Equal(t, "p2", rows[0].LastCaseProc)
}

func TestLater(t *testing.T) {
	tests := []struct {
		name string
		a, b database.CaseEvent
		want bool
	}{
		{
			name: "same date, larger id wins",
			a:    database.CaseEvent{ID: 9, StageDate: "2023-01-01"},
			b:    database.CaseEvent{ID: 5, StageDate: "2023-01-01"},
			want: true,
		},
		{
			name: "same date, smaller id loses",
			a:    database.CaseEvent{ID: 5, StageDate: "2023-01-01"},
			b:    database.CaseEvent{ID: 9, StageDate: "2023-01-01"},
			want: false,
		},
		{
			name: "undated loses to dated regardless of id",
			a:    database.CaseEvent{ID: 20, StageDate: ""},
			b:    database.CaseEvent{ID: 3, StageDate: "2022-06-01"},
			want: false,
		},
		{
			name: "dated beats undated",
			a:    database.CaseEvent{ID: 3, StageDate: "2022-06-01"},
			b:    database.CaseEvent{ID: 20, StageDate: ""},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Later(tt.a, tt.b))
		})
	}
}

func TestResolveEmptyInput(t *testing.T) {
	rows, err := NewResolver(newTestDB(t)).Resolve(context.Background(), []string{" ", ""})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDedupNumbers(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, DedupNumbers([]string{" b", "a", "", "b", "a "}))
}

func TestChunks(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3}}, chunks([]int{1, 2, 3}, 2))
	assert.Nil(t, chunks([]int{}, 2))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []Row{
		{CourtName: "Суд", CaseNumber: "1", PanelJudges: "A: B; C: D"},
		{CaseNumber: "2", NotFound: true},
	}

	require.NoError(t, WriteCSV(&buf, rows, ';'))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	cr := csv.NewReader(bytes.NewReader(data[3:]))
	cr.Comma = ';'
	records, err := cr.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, "A: B; C: D", records[1][6])
	assert.Equal(t, "0", records[1][12])
	assert.Equal(t, "1", records[2][12])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []Row{{CourtName: "Суд", CaseNumber: "1"}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "Суд", rows[1][0])
}

func TestReadCaseNumbers(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "named column, any case",
			content: "court;Case_Number\nA;1/24\nB;2/24\n",
			want:    []string{"1/24", "2/24"},
		},
		{
			name:    "first column fallback",
			content: "numbers\n1/24\n2/24\n",
			want:    []string{"1/24", "2/24"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "in.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			got, err := ReadCaseNumbers(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExport(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, map[string]string{"court_name": "Court", "case_number": "1", "registration_date": "05.03.2024"})

	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out", "report.csv")
	require.NoError(t, os.WriteFile(in, []byte("case_number\n1\n2\n1\n"), 0o644))

	n, err := NewResolver(db).Export(context.Background(), in, out, ExportOptions{Format: FormatCSV, Delimiter: ','})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data[3:])), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Court,1,2024-03-05,,,,,,,,,,0", lines[1])
	assert.Equal(t, ",2,,,,,,,,,,,1", lines[2])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
