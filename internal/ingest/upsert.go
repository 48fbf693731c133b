package ingest

import (
	"fmt"
	"strings"

	"github.com/JustJay7/court-registry/internal/database"
	"github.com/JustJay7/court-registry/internal/normalize"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JudgeCache maps judge names to ids for the lifetime of one import.
type JudgeCache map[string]uint

// Upserter materialises canonical rows into the registry tables. It writes
// through whatever handle it is given; the caller owns the transaction.
type Upserter struct {
	db     *gorm.DB
	judges JudgeCache
}

// NewUpserter binds an upserter to db. A nil cache gets a fresh one.
func NewUpserter(db *gorm.DB, judges JudgeCache) *Upserter {
	if judges == nil {
		judges = JudgeCache{}
	}
	return &Upserter{db: db, judges: judges}
}

// RowResult describes what ApplyRow did with one row.
type RowResult struct {
	CaseID      uint
	Links       int
	FieldErrors []error
}

// ApplyRow upserts the case, its judge links and one event for row. An error
// is returned only when the case itself could not be materialised; failures
// in later steps are collected in RowResult.FieldErrors.
func (u *Upserter) ApplyRow(row normalize.Row) (RowResult, error) {
	var res RowResult

	caseID, err := u.UpsertCase(row)
	if err != nil {
		return res, err
	}
	res.CaseID = caseID

	for _, rn := range row.Judges {
		if rn.Name == "" {
			continue
		}
		judgeID, err := u.GetOrCreateJudge(rn.Name)
		if err != nil {
			res.FieldErrors = append(res.FieldErrors, &FieldError{Field: "judge", Value: rn.String(), Err: err})
			continue
		}
		if err := u.LinkJudge(caseID, judgeID, rn.Role); err != nil {
			res.FieldErrors = append(res.FieldErrors, &FieldError{Field: "case_judge", Value: rn.String(), Err: err})
			continue
		}
		res.Links++
	}

	if err := u.UpsertEvent(caseID, row); err != nil {
		res.FieldErrors = append(res.FieldErrors, &FieldError{Field: "case_event", Value: row.StageName, Err: err})
	}

	return res, nil
}

// UpsertCase inserts the case or, when it already exists, refreshes only its
// registration date. type and description keep their first value.
func (u *Upserter) UpsertCase(row normalize.Row) (uint, error) {
	if err := row.Validate(); err != nil {
		return 0, err
	}

	c := database.Case{
		CourtName:   row.CourtName,
		CaseNumber:  row.CaseNumber,
		Type:        row.Type,
		Description: row.Description,
	}
	if row.RegistrationDate != "" {
		date := row.RegistrationDate
		c.RegistrationDate = &date
	}

	err := u.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "court_name"}, {Name: "case_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"registration_date"}),
	}).Create(&c).Error
	if err != nil {
		return 0, fmt.Errorf("upsert case %s/%s: %w", row.CourtName, row.CaseNumber, err)
	}

	var stored database.Case
	err = u.db.Select("id").
		Where("court_name = ? AND case_number = ?", row.CourtName, row.CaseNumber).
		Take(&stored).Error
	if err != nil {
		return 0, fmt.Errorf("fetch case %s/%s: %w", row.CourtName, row.CaseNumber, err)
	}

	return stored.ID, nil
}

// GetOrCreateJudge returns the id of the judge with the given name, inserting
// it if needed.
func (u *Upserter) GetOrCreateJudge(name string) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyJudgeName
	}
	if id, ok := u.judges[name]; ok {
		return id, nil
	}

	j := database.Judge{Name: name}
	err := u.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&j).Error
	if err != nil {
		return 0, fmt.Errorf("insert judge: %w", err)
	}

	var stored database.Judge
	if err := u.db.Select("id").Where("name = ?", name).Take(&stored).Error; err != nil {
		return 0, fmt.Errorf("fetch judge: %w", err)
	}

	u.judges[name] = stored.ID
	return stored.ID, nil
}

// LinkJudge records that judge sits on the case under role. Existing links
// are left untouched.
func (u *Upserter) LinkJudge(caseID, judgeID uint, role string) error {
	link := database.CaseJudge{
		CaseID:  caseID,
		JudgeID: judgeID,
		Role:    strings.TrimSpace(role),
	}
	return u.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "case_id"}, {Name: "judge_id"}, {Name: "role"}},
		DoNothing: true,
	}).Create(&link).Error
}

// UpsertEvent appends the row's procedural event unless an identical one is
// already stored. Rows without any event detail still register a blank event.
func (u *Upserter) UpsertEvent(caseID uint, row normalize.Row) error {
	ev := database.CaseEvent{
		CaseID:      caseID,
		CaseProc:    row.CaseProc,
		StageDate:   row.StageDate,
		StageName:   row.StageName,
		CauseResult: row.CauseResult,
		CauseDep:    row.CauseDep,
	}
	return u.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "case_id"}, {Name: "stage_date"}, {Name: "stage_name"},
			{Name: "cause_result"}, {Name: "cause_dep"},
		},
		DoNothing: true,
	}).Create(&ev).Error
}
