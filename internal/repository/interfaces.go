package repository

import (
	"context"

	"github.com/rpattn/gradtrack/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrActiveAssignment is returned when a write would give a student a
	// second active project.
	ErrActiveAssignment = errors.New("student already has an active project")
)

// StatusRepository defines the interface for project status operations
type StatusRepository interface {
	GetByKey(ctx context.Context, nameKey string) (domain.Status, error)
	List(ctx context.Context) ([]domain.Status, error)
	MaxSortOrder(ctx context.Context) (int, error)
	// Create inserts the status, returning the stored row when another
	// writer created the same name key first.
	Create(ctx context.Context, status domain.Status) (domain.Status, error)
}

// ProgramRepository defines the interface for academic program operations
type ProgramRepository interface {
	GetByKey(ctx context.Context, nameKey string) (domain.Program, error)
	Create(ctx context.Context, program domain.Program) (domain.Program, error)
}

// CompanyRepository defines the interface for company operations
type CompanyRepository interface {
	GetByKey(ctx context.Context, nameKey string) (domain.Company, error)
	Create(ctx context.Context, company domain.Company) (domain.Company, error)
}

// PersonRepository defines the interface for person operations
type PersonRepository interface {
	GetByDocument(ctx context.Context, documentNumber string) (domain.Person, error)
	ListByDocuments(ctx context.Context, documentNumbers []string) ([]domain.Person, error)
	Create(ctx context.Context, person domain.Person) (domain.Person, error)
}

// ProjectRepository defines the interface for project operations
type ProjectRepository interface {
	// CreateWithAssignments stores the project and all of its assignments
	// atomically: either every row is written or none is.
	CreateWithAssignments(ctx context.Context, project domain.Project, assignments []domain.ActorAssignment) (domain.Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Project, error)
	ListAssignments(ctx context.Context, projectID uuid.UUID) ([]domain.ActorAssignment, error)
	HasActiveStudentAssignment(ctx context.Context, personID uuid.UUID) (bool, error)
}

// CatalogRepository exposes the seeded reference data
type CatalogRepository interface {
	ListModalities(ctx context.Context) ([]domain.Modality, error)
	GetDocumentTypeByCode(ctx context.Context, code string) (domain.DocumentType, error)
	GetFacultyByName(ctx context.Context, name string) (domain.Faculty, error)
	GetAcademicLevelByName(ctx context.Context, name string) (domain.AcademicLevel, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
}

// ImportLogRepository stores import errors for observability.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, fileName string, limit int, offset int) ([]domain.ImportLogEntry, error)
}

// Repositories bundles the storage port consumed by the importer
type Repositories struct {
	Statuses   StatusRepository
	Programs   ProgramRepository
	Companies  CompanyRepository
	People     PersonRepository
	Projects   ProjectRepository
	Catalog    CatalogRepository
	ImportLogs ImportLogRepository
}

// Validate ensures every repository is wired
func (r Repositories) Validate() error {
	switch {
	case r.Statuses == nil:
		return errors.New("status repository is required")
	case r.Programs == nil:
		return errors.New("program repository is required")
	case r.Companies == nil:
		return errors.New("company repository is required")
	case r.People == nil:
		return errors.New("person repository is required")
	case r.Projects == nil:
		return errors.New("project repository is required")
	case r.Catalog == nil:
		return errors.New("catalog repository is required")
	}
	return nil
}
