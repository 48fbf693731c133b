// Package report rebuilds a flat per-case view from the registry tables:
// case attributes, judges grouped by role, and the latest procedural event.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/JustJay7/court-registry/internal/database"
	"gorm.io/gorm"
)

const (
	// DefaultBatchSize keeps IN (...) lists under SQLite's parameter limit.
	DefaultBatchSize = 500

	// DefaultReportingLabel prefixes the role of the reporting judge.
	DefaultReportingLabel = "суддя-доповідач"

	// noDate sorts below every ISO date.
	noDate = "0000-00-00"
)

// Row is one line of the report. Column order is fixed by Header.
type Row struct {
	CourtName        string `json:"court_name"`
	CaseNumber       string `json:"case_number"`
	RegistrationDate string `json:"registration_date"`
	Type             string `json:"type"`
	Description      string `json:"description"`
	ReportingJudge   string `json:"reporting_judge"`
	PanelJudges      string `json:"panel_judges"`
	LastStageDate    string `json:"last_stage_date"`
	LastStageName    string `json:"last_stage_name"`
	LastCauseResult  string `json:"last_cause_result"`
	LastCauseDep     string `json:"last_cause_dep"`
	LastCaseProc     string `json:"last_case_proc"`
	NotFound         bool   `json:"not_found"`
}

// Header is the fixed output column order.
var Header = []string{
	"court_name", "case_number", "registration_date", "type", "description",
	"reporting_judge", "panel_judges",
	"last_stage_date", "last_stage_name", "last_cause_result", "last_cause_dep", "last_case_proc",
	"not_found",
}

// Record renders the row in Header order.
func (r Row) Record() []string {
	notFound := "0"
	if r.NotFound {
		notFound = "1"
	}
	return []string{
		r.CourtName, r.CaseNumber, r.RegistrationDate, r.Type, r.Description,
		r.ReportingJudge, r.PanelJudges,
		r.LastStageDate, r.LastStageName, r.LastCauseResult, r.LastCauseDep, r.LastCaseProc,
		notFound,
	}
}

// Resolver answers report queries against the registry database.
type Resolver struct {
	db             *gorm.DB
	batchSize      int
	reportingLabel string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBatchSize sets how many ids go into one IN (...) query.
func WithBatchSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithReportingLabel sets the role prefix that marks the reporting judge.
func WithReportingLabel(label string) Option {
	return func(r *Resolver) {
		if label = strings.TrimSpace(label); label != "" {
			r.reportingLabel = label
		}
	}
}

func NewResolver(db *gorm.DB, opts ...Option) *Resolver {
	r := &Resolver{
		db:             db,
		batchSize:      DefaultBatchSize,
		reportingLabel: DefaultReportingLabel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type judgeLink struct {
	CaseID    uint
	JudgeName string
	Role      string
}

type caseJudges struct {
	reporting []string
	panel     []string
}

// Resolve returns one row per matching case for each distinct input number,
// or a single not-found row when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, caseNumbers []string) ([]Row, error) {
	numbers := DedupNumbers(caseNumbers)
	if len(numbers) == 0 {
		return []Row{}, nil
	}
	db := r.db.WithContext(ctx)

	cases := make(map[uint]database.Case)
	byNumber := make(map[string][]uint)
	for _, chunk := range chunks(numbers, r.batchSize) {
		var found []database.Case
		if err := db.Where("case_number IN ?", chunk).Order("id").Find(&found).Error; err != nil {
			return nil, fmt.Errorf("fetch cases: %w", err)
		}
		for _, c := range found {
			cases[c.ID] = c
			byNumber[c.CaseNumber] = append(byNumber[c.CaseNumber], c.ID)
		}
	}

	ids := make([]uint, 0, len(cases))
	for _, n := range numbers {
		ids = append(ids, byNumber[n]...)
	}

	judges, err := r.judgesByCase(db, ids)
	if err != nil {
		return nil, err
	}
	events, err := r.latestEvents(db, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(numbers))
	for _, n := range numbers {
		matched := byNumber[n]
		if len(matched) == 0 {
			rows = append(rows, Row{CaseNumber: n, NotFound: true})
			continue
		}
		for _, id := range matched {
			c := cases[id]
			row := Row{
				CourtName:   c.CourtName,
				CaseNumber:  c.CaseNumber,
				Type:        c.Type,
				Description: c.Description,
			}
			if c.RegistrationDate != nil {
				row.RegistrationDate = *c.RegistrationDate
			}
			if j, ok := judges[id]; ok {
				row.ReportingJudge = strings.Join(j.reporting, "; ")
				row.PanelJudges = strings.Join(j.panel, "; ")
			}
			if ev, ok := events[id]; ok {
				row.LastStageDate = ev.StageDate
				row.LastStageName = ev.StageName
				row.LastCauseResult = ev.CauseResult
				row.LastCauseDep = ev.CauseDep
				row.LastCaseProc = ev.CaseProc
			}
			rows = append(rows, row)
		}
	}

	return rows, nil
}

func (r *Resolver) judgesByCase(db *gorm.DB, ids []uint) (map[uint]*caseJudges, error) {
	out := make(map[uint]*caseJudges)
	for _, chunk := range chunks(ids, r.batchSize) {
		var links []judgeLink
		err := db.Table("case_judges").
			Select("case_judges.case_id, judges.name AS judge_name, case_judges.role").
			Joins("JOIN judges ON judges.id = case_judges.judge_id").
			Where("case_judges.case_id IN ?", chunk).
			Order("case_judges.id").
			Scan(&links).Error
		if err != nil {
			return nil, fmt.Errorf("fetch case judges: %w", err)
		}
		for _, l := range links {
			bucket, ok := out[l.CaseID]
			if !ok {
				bucket = &caseJudges{}
				out[l.CaseID] = bucket
			}
			r.addJudge(bucket, strings.TrimSpace(l.Role), strings.TrimSpace(l.JudgeName))
		}
	}
	return out, nil
}

func (r *Resolver) addJudge(bucket *caseJudges, role, name string) {
	if name == "" {
		return
	}
	if r.IsReporting(role) {
		bucket.reporting = appendUnique(bucket.reporting, name)
		return
	}
	entry := name
	if role != "" {
		entry = role + ": " + name
	}
	bucket.panel = appendUnique(bucket.panel, entry)
}

// IsReporting reports whether role marks the reporting judge.
func (r *Resolver) IsReporting(role string) bool {
	return strings.HasPrefix(strings.ToLower(role), strings.ToLower(r.reportingLabel))
}

func (r *Resolver) latestEvents(db *gorm.DB, ids []uint) (map[uint]database.CaseEvent, error) {
	out := make(map[uint]database.CaseEvent)
	for _, chunk := range chunks(ids, r.batchSize) {
		var events []database.CaseEvent
		if err := db.Where("case_id IN ?", chunk).Find(&events).Error; err != nil {
			return nil, fmt.Errorf("fetch case events: %w", err)
		}
		for _, ev := range events {
			if prev, ok := out[ev.CaseID]; !ok || Later(ev, prev) {
				out[ev.CaseID] = ev
			}
		}
	}
	return out, nil
}

// Later reports whether a is more recent than b: the greater stage date wins,
// an empty date counts as the smallest, and equal dates fall back to the
// larger row id.
func Later(a, b database.CaseEvent) bool {
	ad, bd := sortableDate(a.StageDate), sortableDate(b.StageDate)
	if ad != bd {
		return ad > bd
	}
	return a.ID > b.ID
}

func sortableDate(d string) string {
	if d = strings.TrimSpace(d); d == "" {
		return noDate
	}
	return d
}

// DedupNumbers trims the input, drops blanks and repeats, and keeps the
// first-seen order.
func DedupNumbers(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func chunks[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
