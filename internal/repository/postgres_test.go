package repository

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rpattn/gradtrack/internal/db"
	"github.com/rpattn/gradtrack/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDatabase connects to the database named by GRADTRACK_TEST_DATABASE_HOST,
// skipping the test when it is unset.
func openTestDatabase(t *testing.T) Repositories {
	t.Helper()
	host := os.Getenv("GRADTRACK_TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("GRADTRACK_TEST_DATABASE_HOST not set")
	}

	cfg := db.DefaultConfig()
	cfg.Host = host
	if password := os.Getenv("GRADTRACK_TEST_DATABASE_PASSWORD"); password != "" {
		cfg.Password = password
	}

	logger, _ := test.NewNullLogger()
	require.NoError(t, db.RunMigrations(cfg, logger))

	conn, err := db.NewConnection(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	return NewPostgresRepositories(conn.Pool)
}

func TestPostgresSeededCatalog(t *testing.T) {
	repos := openTestDatabase(t)
	ctx := context.Background()

	roles, err := repos.Catalog.ListRoles(ctx)
	require.NoError(t, err)
	table := domain.NewRoleTable(roles)
	assert.NoError(t, table.Require(domain.RoleStudent, domain.RoleAdvisor, domain.RoleDirector, domain.RoleJuror))

	modalities, err := repos.Catalog.ListModalities(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, modalities)

	_, err = repos.Catalog.GetDocumentTypeByCode(ctx, "CC")
	assert.NoError(t, err)
	_, err = repos.Catalog.GetDocumentTypeByCode(ctx, "ZZ")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresStatusCreateIsIdempotent(t *testing.T) {
	repos := openTestDatabase(t)
	ctx := context.Background()

	key := "estado" + strings.ReplaceAll(uuid.NewString(), "-", "")
	first, err := repos.Statuses.Create(ctx, domain.NewStatus("Estado de prueba", key, 99))
	require.NoError(t, err)
	second, err := repos.Statuses.Create(ctx, domain.NewStatus("Estado de prueba", key, 100))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := repos.Statuses.GetByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestPostgresActiveStudentIsUnique(t *testing.T) {
	repos := openTestDatabase(t)
	ctx := context.Background()

	roles, err := repos.Catalog.ListRoles(ctx)
	require.NoError(t, err)
	studentRole, ok := domain.NewRoleTable(roles).Lookup(domain.RoleStudent)
	require.True(t, ok)

	modalities, err := repos.Catalog.ListModalities(ctx)
	require.NoError(t, err)
	docType, err := repos.Catalog.GetDocumentTypeByCode(ctx, "CC")
	require.NoError(t, err)
	faculty, err := repos.Catalog.GetFacultyByName(ctx, "Facultad de Ingeniería")
	require.NoError(t, err)
	level, err := repos.Catalog.GetAcademicLevelByName(ctx, "Pregrado")
	require.NoError(t, err)

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	status, err := repos.Statuses.Create(ctx, domain.NewStatus("Estado "+suffix, "estado"+suffix, 50))
	require.NoError(t, err)
	program, err := repos.Programs.Create(ctx, domain.NewProgram("Programa "+suffix, "programa"+suffix, faculty.ID, level.ID))
	require.NoError(t, err)
	student, err := repos.People.Create(ctx, domain.NewPerson("doc-"+suffix, docType.ID, "Estudiante "+suffix, "documento."+suffix+"@example.test"))
	require.NoError(t, err)

	newProject := func(title string) (domain.Project, []domain.ActorAssignment) {
		project := domain.NewProject(title, modalities[0].ID, status.ID, program.ID, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
		return project, []domain.ActorAssignment{domain.NewActiveAssignment(project.ID, student.ID, studentRole, time.Now())}
	}

	first, assignments := newProject("Primero " + suffix)
	_, err = repos.Projects.CreateWithAssignments(ctx, first, assignments)
	require.NoError(t, err)

	active, err := repos.Projects.HasActiveStudentAssignment(ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, active)

	second, assignments := newProject("Segundo " + suffix)
	_, err = repos.Projects.CreateWithAssignments(ctx, second, assignments)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrActiveAssignment))

	// The project row of the failed write was rolled back with it.
	_, err = repos.Projects.GetByID(ctx, second.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	stored, err := repos.Projects.ListAssignments(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].IsActiveStudent())
}
