package repository

import (
	"context"

	"github.com/rpattn/gradtrack/internal/db"
	"github.com/rpattn/gradtrack/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const activeStudentIndex = "uq_project_actors_active_student"

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a project repository backed by pgxpool
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

const projectColumns = `id, title, summary, objectives, modality_id, status_id, program_id, company_id, start_date, end_date, created_at`

func (r *projectRepository) CreateWithAssignments(ctx context.Context, project domain.Project, assignments []domain.ActorAssignment) (domain.Project, error) {
	var created domain.Project
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO projects (id, title, summary, objectives, modality_id, status_id, program_id, company_id, start_date, end_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING `+projectColumns,
			project.ID, project.Title, project.Summary, project.Objectives,
			project.ModalityID, project.StatusID, project.ProgramID, project.CompanyID,
			project.StartDate, project.EndDate,
		)
		stored, err := scanProject(row)
		if err != nil {
			return errors.Wrap(err, "failed to insert project")
		}

		for _, assignment := range assignments {
			if err := insertAssignment(ctx, tx, stored.ID, assignment); err != nil {
				return err
			}
		}
		created = stored
		return nil
	})
	if err != nil {
		return domain.Project{}, err
	}
	return created, nil
}

func insertAssignment(ctx context.Context, q dbtx, projectID uuid.UUID, a domain.ActorAssignment) error {
	_, err := q.Exec(ctx,
		`INSERT INTO project_actors (id, project_id, person_id, role_id, role_tag, state, assigned_at, withdrawn_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, projectID, a.PersonID, a.RoleID, string(a.RoleTag), string(a.State), a.AssignedAt, a.WithdrawnAt,
	)
	if err == nil {
		return nil
	}
	if isUniqueViolation(err, activeStudentIndex) {
		return errors.Wrapf(ErrActiveAssignment, "person %s", a.PersonID)
	}
	return errors.Wrap(err, "failed to insert project actor")
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Project, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	project, err := scanProject(row)
	if err != nil {
		return domain.Project{}, lookupError(err, "project "+id.String())
	}
	return project, nil
}

func (r *projectRepository) ListAssignments(ctx context.Context, projectID uuid.UUID) ([]domain.ActorAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, person_id, role_id, role_tag, state, assigned_at, withdrawn_at
		 FROM project_actors
		 WHERE project_id = $1
		 ORDER BY assigned_at, role_tag`,
		projectID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list project actors")
	}
	defer rows.Close()

	assignments := []domain.ActorAssignment{}
	for rows.Next() {
		var (
			a           domain.ActorAssignment
			roleTag     string
			state       string
			withdrawnAt pgtype.Timestamptz
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.PersonID, &a.RoleID, &roleTag, &state, &a.AssignedAt, &withdrawnAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan project actor")
		}
		a.RoleTag = domain.RoleTag(roleTag)
		a.State = domain.AssignmentState(state)
		if withdrawnAt.Valid {
			at := withdrawnAt.Time
			a.WithdrawnAt = &at
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate project actors")
	}
	return assignments, nil
}

func (r *projectRepository) HasActiveStudentAssignment(ctx context.Context, personID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM project_actors
			WHERE person_id = $1 AND state = 'active' AND role_tag = $2
		)`,
		personID, string(domain.RoleStudent),
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check active student assignment")
	}
	return exists, nil
}

func scanProject(row pgx.Row) (domain.Project, error) {
	var (
		p         domain.Project
		companyID pgtype.UUID
		endDate   pgtype.Date
	)
	if err := row.Scan(
		&p.ID, &p.Title, &p.Summary, &p.Objectives,
		&p.ModalityID, &p.StatusID, &p.ProgramID, &companyID,
		&p.StartDate, &endDate, &p.CreatedAt,
	); err != nil {
		return domain.Project{}, err
	}
	if companyID.Valid {
		id := uuid.UUID(companyID.Bytes)
		p.CompanyID = &id
	}
	if endDate.Valid {
		end := endDate.Time
		p.EndDate = &end
	}
	return p, nil
}
