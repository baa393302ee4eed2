package repository

import (
	"context"

	"github.com/rpattn/gradtrack/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type statusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository creates a status repository backed by pgxpool
func NewStatusRepository(pool *pgxpool.Pool) StatusRepository {
	return &statusRepository{pool: pool}
}

const statusColumns = `id, name, name_key, sort_order, created_at`

func (r *statusRepository) GetByKey(ctx context.Context, nameKey string) (domain.Status, error) {
	var s domain.Status
	err := r.pool.QueryRow(ctx,
		`SELECT `+statusColumns+` FROM statuses WHERE name_key = $1`,
		nameKey,
	).Scan(&s.ID, &s.Name, &s.NameKey, &s.SortOrder, &s.CreatedAt)
	if err != nil {
		return domain.Status{}, lookupError(err, "status "+nameKey)
	}
	return s, nil
}

func (r *statusRepository) List(ctx context.Context) ([]domain.Status, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+statusColumns+` FROM statuses ORDER BY sort_order, name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list statuses")
	}
	defer rows.Close()

	statuses := []domain.Status{}
	for rows.Next() {
		var s domain.Status
		if err := rows.Scan(&s.ID, &s.Name, &s.NameKey, &s.SortOrder, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan status")
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate statuses")
	}
	return statuses, nil
}

func (r *statusRepository) MaxSortOrder(ctx context.Context) (int, error) {
	var max int
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM statuses`).Scan(&max); err != nil {
		return 0, errors.Wrap(err, "failed to read max status order")
	}
	return max, nil
}

func (r *statusRepository) Create(ctx context.Context, status domain.Status) (domain.Status, error) {
	var s domain.Status
	err := r.pool.QueryRow(ctx,
		`INSERT INTO statuses (id, name, name_key, sort_order)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name_key) DO UPDATE SET name_key = EXCLUDED.name_key
		 RETURNING `+statusColumns,
		status.ID, status.Name, status.NameKey, status.SortOrder,
	).Scan(&s.ID, &s.Name, &s.NameKey, &s.SortOrder, &s.CreatedAt)
	if err != nil {
		return domain.Status{}, errors.Wrap(err, "failed to create status")
	}
	return s, nil
}
