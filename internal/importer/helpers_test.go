package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rpattn/gradtrack/internal/domain"
	"github.com/rpattn/gradtrack/internal/repository"
	"github.com/rpattn/gradtrack/internal/repository/memstore"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var baseHeader = []interface{}{"Titulo", "Modalidad", "Estado", "Programa", "Fecha_inicio", "Estudiantes"}

// newSeededStore returns a store holding the reference data a run needs.
func newSeededStore(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	store.SeedRole(domain.RoleStudent)
	store.SeedRole(domain.RoleAdvisor)
	store.SeedRole(domain.RoleCoordinator)
	store.SeedDocumentType("CC", "Cédula de ciudadanía")
	store.SeedFaculty("Facultad de Ingeniería")
	store.SeedAcademicLevel("Pregrado")
	store.SeedModality("Investigación", "investigacion")
	store.SeedModality("Pasantía", "pasantia")
	store.SeedStatus("Propuesta", "propuesta", 1)
	store.SeedStatus("En curso", "encurso", 2)
	return store
}

func newTestService(t *testing.T, store *memstore.Store, opts ...Option) *Service {
	t.Helper()
	return newTestServiceWithRepos(t, store.Repositories(), opts...)
}

func newTestServiceWithRepos(t *testing.T, repos repository.Repositories, opts ...Option) *Service {
	t.Helper()
	roles, err := repos.Catalog.ListRoles(context.Background())
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	opts = append([]Option{WithLogger(logger)}, opts...)
	service, err := NewService(repos, domain.NewRoleTable(roles), opts...)
	require.NoError(t, err)
	return service
}

// workbook builds an xlsx payload whose first sheet holds rows starting at A1.
func workbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		if row == nil {
			continue
		}
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &values))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func runImport(t *testing.T, service *Service, payload []byte) Summary {
	t.Helper()
	summary, err := service.Import(context.Background(), Request{
		FileName: "proyectos.xlsx",
		Data:     strings.NewReader(string(payload)),
	})
	require.NoError(t, err)
	return summary
}

func row(values ...interface{}) []interface{} {
	return values
}
