package repository

import (
	"context"

	"github.com/rpattn/gradtrack/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type personRepository struct {
	pool *pgxpool.Pool
}

// NewPersonRepository creates a person repository backed by pgxpool
func NewPersonRepository(pool *pgxpool.Pool) PersonRepository {
	return &personRepository{pool: pool}
}

const personColumns = `id, document_number, document_type_id, full_name, email, confirmed, created_at`

func (r *personRepository) GetByDocument(ctx context.Context, documentNumber string) (domain.Person, error) {
	var p domain.Person
	err := r.pool.QueryRow(ctx,
		`SELECT `+personColumns+` FROM persons WHERE document_number = $1`,
		documentNumber,
	).Scan(&p.ID, &p.DocumentNumber, &p.DocumentTypeID, &p.FullName, &p.Email, &p.Confirmed, &p.CreatedAt)
	if err != nil {
		return domain.Person{}, lookupError(err, "person "+documentNumber)
	}
	return p, nil
}

func (r *personRepository) ListByDocuments(ctx context.Context, documentNumbers []string) ([]domain.Person, error) {
	if len(documentNumbers) == 0 {
		return []domain.Person{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+personColumns+` FROM persons WHERE document_number = ANY($1)`,
		documentNumbers,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list persons by document")
	}
	defer rows.Close()

	people := []domain.Person{}
	for rows.Next() {
		var p domain.Person
		if err := rows.Scan(&p.ID, &p.DocumentNumber, &p.DocumentTypeID, &p.FullName, &p.Email, &p.Confirmed, &p.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan person")
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate persons")
	}
	return people, nil
}

func (r *personRepository) Create(ctx context.Context, person domain.Person) (domain.Person, error) {
	var p domain.Person
	err := r.pool.QueryRow(ctx,
		`INSERT INTO persons (id, document_number, document_type_id, full_name, email, confirmed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (document_number) DO UPDATE SET document_number = EXCLUDED.document_number
		 RETURNING `+personColumns,
		person.ID, person.DocumentNumber, person.DocumentTypeID, person.FullName, person.Email, person.Confirmed,
	).Scan(&p.ID, &p.DocumentNumber, &p.DocumentTypeID, &p.FullName, &p.Email, &p.Confirmed, &p.CreatedAt)
	if err != nil {
		return domain.Person{}, errors.Wrap(err, "failed to create person")
	}
	return p, nil
}
