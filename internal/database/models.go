package database

// Case is one court proceeding. A court may reuse case numbers seen in other
// courts, so identity is the (court_name, case_number) pair.
type Case struct {
	ID               uint    `json:"id" gorm:"primaryKey"`
	CourtName        string  `json:"court_name" gorm:"not null;uniqueIndex:idx_cases_identity,priority:1"`
	CaseNumber       string  `json:"case_number" gorm:"not null;uniqueIndex:idx_cases_identity,priority:2"`
	RegistrationDate *string `json:"registration_date" gorm:"type:text"`
	Type             string  `json:"type"`
	Description      string  `json:"description" gorm:"type:text"`
}

type Judge struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;uniqueIndex"`
}

// CaseJudge links a judge to a case under a free-text role. Role is stored as
// an empty string, never NULL, so the unique index covers it.
type CaseJudge struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	CaseID  uint   `json:"case_id" gorm:"not null;uniqueIndex:idx_case_judges_identity,priority:1"`
	JudgeID uint   `json:"judge_id" gorm:"not null;uniqueIndex:idx_case_judges_identity,priority:2"`
	Role    string `json:"role" gorm:"not null;uniqueIndex:idx_case_judges_identity,priority:3"`
	Case    *Case  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Judge   *Judge `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// CaseEvent is one procedural milestone. An empty StageDate is a valid key
// value distinct from every real date.
type CaseEvent struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	CaseID      uint   `json:"case_id" gorm:"not null;uniqueIndex:idx_case_events_identity,priority:1"`
	CaseProc    string `json:"case_proc"`
	StageDate   string `json:"stage_date" gorm:"not null;uniqueIndex:idx_case_events_identity,priority:2"`
	StageName   string `json:"stage_name" gorm:"not null;uniqueIndex:idx_case_events_identity,priority:3"`
	CauseResult string `json:"cause_result" gorm:"not null;uniqueIndex:idx_case_events_identity,priority:4"`
	CauseDep    string `json:"cause_dep" gorm:"not null;uniqueIndex:idx_case_events_identity,priority:5"`
	Case        *Case  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (Case) TableName() string {
	return "cases"
}

func (Judge) TableName() string {
	return "judges"
}

func (CaseJudge) TableName() string {
	return "case_judges"
}

func (CaseEvent) TableName() string {
	return "case_events"
}
