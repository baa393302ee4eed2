package repository

import (
	"context"

	"github.com/rpattn/gradtrack/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository creates a company repository backed by pgxpool
func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

const companyColumns = `id, name, name_key, tax_id, created_at`

func (r *companyRepository) GetByKey(ctx context.Context, nameKey string) (domain.Company, error) {
	var c domain.Company
	err := r.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE name_key = $1`,
		nameKey,
	).Scan(&c.ID, &c.Name, &c.NameKey, &c.TaxID, &c.CreatedAt)
	if err != nil {
		return domain.Company{}, lookupError(err, "company "+nameKey)
	}
	return c, nil
}

func (r *companyRepository) Create(ctx context.Context, company domain.Company) (domain.Company, error) {
	var c domain.Company
	err := r.pool.QueryRow(ctx,
		`INSERT INTO companies (id, name, name_key, tax_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name_key) DO UPDATE SET name_key = EXCLUDED.name_key
		 RETURNING `+companyColumns,
		company.ID, company.Name, company.NameKey, company.TaxID,
	).Scan(&c.ID, &c.Name, &c.NameKey, &c.TaxID, &c.CreatedAt)
	if err != nil {
		return domain.Company{}, errors.Wrap(err, "failed to create company")
	}
	return c, nil
}
