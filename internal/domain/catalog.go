package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is a project lifecycle state such as "En curso". SortOrder drives
// how dashboards order the states.
type Status struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	NameKey   string    `json:"name_key"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStatus creates a status with a fresh identifier
func NewStatus(name, nameKey string, sortOrder int) Status {
	return Status{
		ID:        uuid.New(),
		Name:      name,
		NameKey:   nameKey,
		SortOrder: sortOrder,
		CreatedAt: time.Now(),
	}
}

// Modality is the kind of graduation work (research, internship, ...).
// Modalities are a closed, seeded set.
type Modality struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	NameKey string    `json:"name_key"`
}

// Faculty groups academic programs
type Faculty struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// AcademicLevel is the degree level of a program (undergraduate, master, ...)
type AcademicLevel struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Program is an academic program a project belongs to
type Program struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	NameKey         string    `json:"name_key"`
	FacultyID       uuid.UUID `json:"faculty_id"`
	AcademicLevelID uuid.UUID `json:"academic_level_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewProgram creates a program attached to a faculty and academic level
func NewProgram(name, nameKey string, facultyID, levelID uuid.UUID) Program {
	return Program{
		ID:              uuid.New(),
		Name:            name,
		NameKey:         nameKey,
		FacultyID:       facultyID,
		AcademicLevelID: levelID,
		CreatedAt:       time.Now(),
	}
}

// Company is an optional external partner of a project
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	NameKey   string    `json:"name_key"`
	TaxID     string    `json:"tax_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCompany creates a company record
func NewCompany(name, nameKey, taxID string) Company {
	return Company{
		ID:        uuid.New(),
		Name:      name,
		NameKey:   nameKey,
		TaxID:     taxID,
		CreatedAt: time.Now(),
	}
}

// DocumentType is an identity document kind (CC, TI, CE, ...)
type DocumentType struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}
