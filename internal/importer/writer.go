package importer

import (
	"context"
	"time"

	"github.com/rpattn/gradtrack/internal/domain"
	"github.com/rpattn/gradtrack/internal/repository"

	"github.com/pkg/errors"
)

const (
	writeFailedMessage    = "internal error while saving the project"
	validateFailedMessage = "internal error while validating the row"
)

// projectPlan is a validated row with every reference resolved.
type projectPlan struct {
	Row      validatedRow
	Status   domain.Status
	Program  domain.Program
	Company  *domain.Company
	Students []domain.Person
	Advisors []domain.Person
}

// projectWriter stores one project and its assignments as a single unit.
type projectWriter struct {
	projects    repository.ProjectRepository
	studentRole domain.Role
	advisorRole domain.Role
	now         func() time.Time
}

func (w *projectWriter) write(ctx context.Context, plan projectPlan) (domain.Project, error) {
	row := plan.Row
	project := domain.NewProject(row.Title, row.Modality.ID, plan.Status.ID, plan.Program.ID, row.StartDate)
	project.Summary = row.Summary
	project.Objectives = row.Objectives
	project.EndDate = row.EndDate
	if plan.Company != nil {
		companyID := plan.Company.ID
		project.CompanyID = &companyID
	}

	assignedAt := w.now()
	assignments := make([]domain.ActorAssignment, 0, len(plan.Students)+len(plan.Advisors))
	for _, student := range plan.Students {
		assignments = append(assignments, domain.NewActiveAssignment(project.ID, student.ID, w.studentRole, assignedAt))
	}
	for _, advisor := range plan.Advisors {
		assignments = append(assignments, domain.NewActiveAssignment(project.ID, advisor.ID, w.advisorRole, assignedAt))
	}

	stored, err := w.projects.CreateWithAssignments(ctx, project, assignments)
	if err != nil {
		return domain.Project{}, errors.Wrapf(err, "store project for row %d", row.Number)
	}
	return stored, nil
}
