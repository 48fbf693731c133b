package database

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations creates the lookup indexes the report queries rely on.
func RunMigrations(db *gorm.DB) error {
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func createIndexes(db *gorm.DB) error {
	// Reports look cases up by number alone, across courts
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_cases_case_number
		ON cases(case_number)
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_case_judges_judge
		ON case_judges(judge_id)
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_case_events_latest
		ON case_events(case_id, stage_date, id)
	`).Error; err != nil {
		return err
	}

	return nil
}
