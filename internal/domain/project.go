package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project is a graduation work (trabajo de grado)
type Project struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Summary    string     `json:"summary,omitempty"`
	Objectives string     `json:"objectives,omitempty"`
	ModalityID uuid.UUID  `json:"modality_id"`
	StatusID   uuid.UUID  `json:"status_id"`
	ProgramID  uuid.UUID  `json:"program_id"`
	CompanyID  *uuid.UUID `json:"company_id,omitempty"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewProject creates a project with a fresh identifier
func NewProject(title string, modalityID, statusID, programID uuid.UUID, startDate time.Time) Project {
	return Project{
		ID:         uuid.New(),
		Title:      title,
		ModalityID: modalityID,
		StatusID:   statusID,
		ProgramID:  programID,
		StartDate:  startDate,
		CreatedAt:  time.Now(),
	}
}

// AssignmentState is the lifecycle state of an actor assignment
type AssignmentState string

const (
	AssignmentActive   AssignmentState = "active"
	AssignmentInactive AssignmentState = "inactive"
)

// ActorAssignment links a person to a project under a role.
// A person holds at most one active student assignment at a time.
type ActorAssignment struct {
	ID          uuid.UUID       `json:"id"`
	ProjectID   uuid.UUID       `json:"project_id"`
	PersonID    uuid.UUID       `json:"person_id"`
	RoleID      uuid.UUID       `json:"role_id"`
	RoleTag     RoleTag         `json:"role_tag"`
	State       AssignmentState `json:"state"`
	AssignedAt  time.Time       `json:"assigned_at"`
	WithdrawnAt *time.Time      `json:"withdrawn_at,omitempty"`
}

// NewActiveAssignment assigns a person to a project starting at assignedAt
func NewActiveAssignment(projectID, personID uuid.UUID, role Role, assignedAt time.Time) ActorAssignment {
	return ActorAssignment{
		ID:         uuid.New(),
		ProjectID:  projectID,
		PersonID:   personID,
		RoleID:     role.ID,
		RoleTag:    role.Tag,
		State:      AssignmentActive,
		AssignedAt: assignedAt,
	}
}

// Withdraw returns a copy of the assignment marked inactive at the given time
func (a ActorAssignment) Withdraw(at time.Time) ActorAssignment {
	withdrawn := a
	withdrawn.State = AssignmentInactive
	withdrawn.WithdrawnAt = &at
	return withdrawn
}

// IsActiveStudent reports whether the assignment counts against the
// one-active-project-per-student rule
func (a ActorAssignment) IsActiveStudent() bool {
	return a.State == AssignmentActive && a.RoleTag == RoleStudent
}
