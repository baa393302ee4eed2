package repository

import (
	"context"

	"github.com/rpattn/gradtrack/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type programRepository struct {
	pool *pgxpool.Pool
}

// NewProgramRepository creates a program repository backed by pgxpool
func NewProgramRepository(pool *pgxpool.Pool) ProgramRepository {
	return &programRepository{pool: pool}
}

const programColumns = `id, name, name_key, faculty_id, academic_level_id, created_at`

func (r *programRepository) GetByKey(ctx context.Context, nameKey string) (domain.Program, error) {
	var p domain.Program
	err := r.pool.QueryRow(ctx,
		`SELECT `+programColumns+` FROM programs WHERE name_key = $1`,
		nameKey,
	).Scan(&p.ID, &p.Name, &p.NameKey, &p.FacultyID, &p.AcademicLevelID, &p.CreatedAt)
	if err != nil {
		return domain.Program{}, lookupError(err, "program "+nameKey)
	}
	return p, nil
}

func (r *programRepository) Create(ctx context.Context, program domain.Program) (domain.Program, error) {
	var p domain.Program
	err := r.pool.QueryRow(ctx,
		`INSERT INTO programs (id, name, name_key, faculty_id, academic_level_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name_key) DO UPDATE SET name_key = EXCLUDED.name_key
		 RETURNING `+programColumns,
		program.ID, program.Name, program.NameKey, program.FacultyID, program.AcademicLevelID,
	).Scan(&p.ID, &p.Name, &p.NameKey, &p.FacultyID, &p.AcademicLevelID, &p.CreatedAt)
	if err != nil {
		return domain.Program{}, errors.Wrap(err, "failed to create program")
	}
	return p, nil
}
