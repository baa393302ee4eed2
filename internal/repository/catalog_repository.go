package repository

import (
	"context"

	"github.com/rpattn/gradtrack/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a repository over the seeded reference tables
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) ListModalities(ctx context.Context) ([]domain.Modality, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, name_key FROM modalities ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list modalities")
	}
	defer rows.Close()

	modalities := []domain.Modality{}
	for rows.Next() {
		var m domain.Modality
		if err := rows.Scan(&m.ID, &m.Name, &m.NameKey); err != nil {
			return nil, errors.Wrap(err, "failed to scan modality")
		}
		modalities = append(modalities, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate modalities")
	}
	return modalities, nil
}

func (r *catalogRepository) GetDocumentTypeByCode(ctx context.Context, code string) (domain.DocumentType, error) {
	var d domain.DocumentType
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, name FROM document_types WHERE code = $1`,
		code,
	).Scan(&d.ID, &d.Code, &d.Name)
	if err != nil {
		return domain.DocumentType{}, lookupError(err, "document type "+code)
	}
	return d, nil
}

func (r *catalogRepository) GetFacultyByName(ctx context.Context, name string) (domain.Faculty, error) {
	var f domain.Faculty
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM faculties WHERE name = $1`, name).Scan(&f.ID, &f.Name)
	if err != nil {
		return domain.Faculty{}, lookupError(err, "faculty "+name)
	}
	return f, nil
}

func (r *catalogRepository) GetAcademicLevelByName(ctx context.Context, name string) (domain.AcademicLevel, error) {
	var l domain.AcademicLevel
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM academic_levels WHERE name = $1`, name).Scan(&l.ID, &l.Name)
	if err != nil {
		return domain.AcademicLevel{}, lookupError(err, "academic level "+name)
	}
	return l, nil
}

func (r *catalogRepository) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tag, name FROM roles ORDER BY tag`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list roles")
	}
	defer rows.Close()

	roles := []domain.Role{}
	for rows.Next() {
		var (
			role domain.Role
			tag  string
		)
		if err := rows.Scan(&role.ID, &tag, &role.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan role")
		}
		role.Tag = domain.RoleTag(tag)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate roles")
	}
	return roles, nil
}
