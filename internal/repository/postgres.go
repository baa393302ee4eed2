package repository

import "github.com/jackc/pgx/v5/pgxpool"

// NewPostgresRepositories wires every repository onto one pool
func NewPostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Statuses:   NewStatusRepository(pool),
		Programs:   NewProgramRepository(pool),
		Companies:  NewCompanyRepository(pool),
		People:     NewPersonRepository(pool),
		Projects:   NewProjectRepository(pool),
		Catalog:    NewCatalogRepository(pool),
		ImportLogs: NewImportLogRepository(pool),
	}
}
