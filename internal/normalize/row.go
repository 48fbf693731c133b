package normalize

import (
	"errors"
	"fmt"
)

// ErrValidation marks a row that lacks a mandatory case identity field.
var ErrValidation = errors.New("validation failed")

// Logical input columns, in registry order.
const (
	ColCourtName        = "court_name"
	ColCaseNumber       = "case_number"
	ColCaseProc         = "case_proc"
	ColRegistrationDate = "registration_date"
	ColJudge            = "judge"
	ColJudges           = "judges"
	ColParticipants     = "participants"
	ColStageDate        = "stage_date"
	ColStageName        = "stage_name"
	ColCauseResult      = "cause_result"
	ColCauseDep         = "cause_dep"
	ColType             = "type"
	ColDescription      = "description"
)

// Columns lists every column the importer reads. Other columns are ignored.
var Columns = []string{
	ColCourtName, ColCaseNumber, ColCaseProc, ColRegistrationDate,
	ColJudge, ColJudges, ColParticipants, ColStageDate, ColStageName,
	ColCauseResult, ColCauseDep, ColType, ColDescription,
}

// Row is the canonical form of one registry record. Dates are ISO strings,
// empty when absent or unparseable.
type Row struct {
	CourtName        string     `json:"court_name"`
	CaseNumber       string     `json:"case_number"`
	CaseProc         string     `json:"case_proc"`
	RegistrationDate string     `json:"registration_date"`
	Judges           []RoleName `json:"judges"`
	Participants     string     `json:"participants"`
	StageDate        string     `json:"stage_date"`
	StageName        string     `json:"stage_name"`
	CauseResult      string     `json:"cause_result"`
	CauseDep         string     `json:"cause_dep"`
	Type             string     `json:"type"`
	Description      string     `json:"description"`
}

// Validate reports ErrValidation when court_name or case_number is empty.
func (r Row) Validate() error {
	if r.CourtName == "" {
		return fmt.Errorf("%w: empty %s", ErrValidation, ColCourtName)
	}
	if r.CaseNumber == "" {
		return fmt.Errorf("%w: empty %s", ErrValidation, ColCaseNumber)
	}
	return nil
}

// FromRecord builds a Row from a CSV record keyed by column name. Missing keys
// behave as empty cells.
func FromRecord(fields map[string]string) Row {
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return FromValues(values)
}

// FromValues builds a Row from loosely typed values, such as decoded JSON.
func FromValues(values map[string]any) Row {
	get := func(col string) string { return Scalar(values[col]) }

	row := Row{
		CourtName:    get(ColCourtName),
		CaseNumber:   get(ColCaseNumber),
		CaseProc:     get(ColCaseProc),
		Participants: get(ColParticipants),
		StageName:    get(ColStageName),
		CauseResult:  get(ColCauseResult),
		CauseDep:     get(ColCauseDep),
		Type:         get(ColType),
		Description:  get(ColDescription),
	}
	row.RegistrationDate, _ = ParseRegistryDate(get(ColRegistrationDate))
	row.StageDate, _ = ParseRegistryDate(get(ColStageDate))

	// The single judge cell is one pair even if it contains ';'.
	if rn, ok := ParseRoleName(get(ColJudge)); ok {
		row.Judges = append(row.Judges, rn)
	}
	for _, chunk := range SplitMultiValue(get(ColJudges)) {
		if rn, ok := ParseRoleName(chunk); ok {
			row.Judges = append(row.Judges, rn)
		}
	}

	return row
}
