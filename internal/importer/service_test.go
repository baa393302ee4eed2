package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rpattn/gradtrack/internal/domain"
	"github.com/rpattn/gradtrack/internal/repository"
	"github.com/rpattn/gradtrack/internal/repository/memstore"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestImportCreatesMissingStatus(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	summary := runImport(t, service, workbook(t,
		baseHeader,
		row("Sistema X", "Investigación", "Nuevo Estado", "Ingeniería", "2025-03-01", "123456789"),
	))

	assert.Equal(t, 1, summary.TotalRows)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, OutcomeSuccess, summary.Outcome())
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, RowOutcome{Row: 2, Status: RowSuccess, Title: "Sistema X", Messages: []string{}, State: StateCommitted}, summary.Rows[0])

	statuses := store.Statuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, "Nuevo Estado", statuses[2].Name)
	assert.Equal(t, 3, statuses[2].SortOrder)

	projects := store.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, statuses[2].ID, projects[0].StatusID)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), projects[0].StartDate)

	person, ok := store.Person("123456789")
	require.True(t, ok)
	assert.False(t, person.Confirmed)
	assert.Equal(t, "documento.123456789@placeholder.gradtrack.local", person.Email)

	assignments := store.Assignments()
	require.Len(t, assignments, 1)
	assert.Equal(t, person.ID, assignments[0].PersonID)
	assert.Equal(t, domain.RoleStudent, assignments[0].RoleTag)
	assert.Equal(t, domain.AssignmentActive, assignments[0].State)
}

func TestImportRejectsUnparseableStartDate(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	summary := runImport(t, service, workbook(t,
		baseHeader,
		row("Sistema X", "Investigación", "Nuevo Estado", "Ingeniería", "not-a-date", "123456789"),
	))

	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, OutcomeFailure, summary.Outcome())
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, RowError, summary.Rows[0].Status)
	assert.Equal(t, StateInvalid, summary.Rows[0].State)
	require.Len(t, summary.Rows[0].Messages, 1)
	assert.Contains(t, summary.Rows[0].Messages[0], "date format")

	// A rejected row writes nothing, not even its references.
	assert.Empty(t, store.Projects())
	assert.Len(t, store.Statuses(), 2)
	assert.Empty(t, store.Programs())
	_, ok := store.Person("123456789")
	assert.False(t, ok)

	logs := store.Logs()
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].RowNumber)
	assert.Equal(t, 2, *logs[0].RowNumber)
}

func TestImportRejectsStudentRepeatedAcrossRows(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	summary := runImport(t, service, workbook(t,
		baseHeader,
		row("Primero", "Investigación", "En curso", "Ingeniería", "2025-03-01", "111"),
		row("Segundo", "Investigación", "En curso", "Ingeniería", "2025-03-01", "111"),
	))

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, OutcomePartial, summary.Outcome())
	assert.Equal(t, RowSuccess, summary.Rows[0].Status)
	assert.Equal(t, RowError, summary.Rows[1].Status)
	assert.Equal(t, 3, summary.Rows[1].Row)
	assert.Equal(t, []string{`student "111" already has an active project`}, summary.Rows[1].Messages)
	assert.Len(t, store.Projects(), 1)
}

func TestImportRejectsStudentWithStoredActiveProject(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)
	ctx := context.Background()

	docType, err := store.Repositories().Catalog.GetDocumentTypeByCode(ctx, "CC")
	require.NoError(t, err)
	student := store.SeedPerson(domain.NewPerson("555", docType.ID, "Laura Pérez", "laura@example.edu"))
	roles, err := store.Repositories().Catalog.ListRoles(ctx)
	require.NoError(t, err)
	studentRole, ok := domain.NewRoleTable(roles).Lookup(domain.RoleStudent)
	require.True(t, ok)
	store.SeedAssignment(domain.NewActiveAssignment(uuid.New(), student.ID, studentRole, time.Now()))

	summary := runImport(t, service, workbook(t,
		baseHeader,
		row("Sistema X", "Investigación", "En curso", "Ingeniería", "2025-03-01", "555"),
	))

	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, []string{`student "555" already has an active project`}, summary.Rows[0].Messages)
}

func TestImportAllowsStudentWithWithdrawnAssignment(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)
	ctx := context.Background()

	docType, err := store.Repositories().Catalog.GetDocumentTypeByCode(ctx, "CC")
	require.NoError(t, err)
	student := store.SeedPerson(domain.NewPerson("556", docType.ID, "Mario Ruiz", "mario@example.edu"))
	roles, err := store.Repositories().Catalog.ListRoles(ctx)
	require.NoError(t, err)
	studentRole, _ := domain.NewRoleTable(roles).Lookup(domain.RoleStudent)
	store.SeedAssignment(domain.NewActiveAssignment(uuid.New(), student.ID, studentRole, time.Now()).Withdraw(time.Now()))

	summary := runImport(t, service, workbook(t,
		baseHeader,
		row("Sistema X", "Investigación", "En curso", "Ingeniería", "2025-03-01", "556"),
	))

	assert.Equal(t, 1, summary.Imported)
}

func TestImportRejectsThreeStudents(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	summary := runImport(t, service, workbook(t,
		baseHeader,
		row("Sistema X", "Investigación", "En curso", "Ingeniería", "2025-03-01", "1;2;3"),
	))

	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Rows[0].Messages, "a project can have at most 2 students (got 3)")
	assert.Empty(t, store.Projects())
	assert.Zero(t, store.Calls("people.create"))
	assert.Zero(t, store.Calls("projects.create"))
}

func TestImportAccumulatesEveryRowProblem(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	header := append(append([]interface{}{}, baseHeader...), "Fecha_fin", "Asesores")
	summary := runImport(t, service, workbook(t,
		header,
		row("", "Teatro", "En curso", "", "2025-03-10", "111;111", "2025-03-01", "111"),
	))

	require.Len(t, summary.Rows, 1)
	assert.Equal(t, []string{
		`"titulo" is required`,
		`unknown modality "Teatro"`,
		`"programa" is required`,
		`"fecha_fin" (2025-03-01) must not be before "fecha_inicio" (2025-03-10)`,
		`student "111" is listed more than once`,
		`document "111" cannot be both student and advisor`,
	}, summary.Rows[0].Messages)
}

func TestImportAssignsAdvisorsAndCompany(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	header := append(append([]interface{}{}, baseHeader...), "Asesores", "Empresa", "Fecha_fin", "Resumen")
	summary := runImport(t, service, workbook(t,
		header,
		row("Sistema X", "pasantia", "Finalizado", "Ingeniería Civil", "01/02/2024", "111 | 222", "900", "Acme", "30-11-2024", "Resumen corto"),
	))

	require.Equal(t, 1, summary.Imported, summary.Rows)
	projects := store.Projects()
	require.Len(t, projects, 1)
	project := projects[0]
	require.NotNil(t, project.CompanyID)
	require.NotNil(t, project.EndDate)
	assert.Equal(t, "2024-11-30", project.EndDate.Format("2006-01-02"))
	assert.Equal(t, "Resumen corto", project.Summary)

	byRole := map[domain.RoleTag]int{}
	for _, a := range store.Assignments() {
		byRole[a.RoleTag]++
		assert.Equal(t, project.ID, a.ProjectID)
	}
	assert.Equal(t, 2, byRole[domain.RoleStudent])
	assert.Equal(t, 1, byRole[domain.RoleAdvisor])

	statuses := store.Statuses()
	assert.Equal(t, "Finalizado", statuses[len(statuses)-1].Name)
}

func TestImportWriteFailureIsGeneric(t *testing.T) {
	store := newSeededStore(t)
	store.FailProjectWrite = func(project domain.Project) error {
		if project.Title == "Roto" {
			return errors.New("duplicate key value violates unique constraint")
		}
		return nil
	}
	service := newTestService(t, store)

	summary := runImport(t, service, workbook(t,
		baseHeader,
		row("Roto", "Investigación", "En curso", "Ingeniería", "2025-03-01", "111"),
		row("Sano", "Investigación", "En curso", "Ingeniería", "2025-03-01", "111"),
	))

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, StateWriteFailed, summary.Rows[0].State)
	assert.Equal(t, []string{writeFailedMessage}, summary.Rows[0].Messages)

	// The failed row did not mark its student as assigned.
	assert.Equal(t, RowSuccess, summary.Rows[1].Status)
	projects := store.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, "Sano", projects[0].Title)
	assert.Len(t, store.Assignments(), 1)

	logs := store.Logs()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].ErrorMessage, "duplicate key value")
}

func TestImportSerialDateCells(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &baseHeader))
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Sistema X", "Investigación", "En curso", "Ingeniería", start, "111"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	summary := runImport(t, service, buf.Bytes())
	require.Equal(t, 1, summary.Imported, summary.Rows)
	assert.True(t, start.Equal(store.Projects()[0].StartDate))
}

func TestImportCountsInvariant(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	summary := runImport(t, service, workbook(t,
		baseHeader,
		row("A", "Investigación", "En curso", "Ingeniería", "2025-03-01", "1"),
		row("B", "Investigación", "En curso", "Ingeniería", "bad", "2"),
		row("C", "Investigación", "En curso", "Ingeniería", "2025-03-01", "1"),
		row("D", "Pasantía", "Propuesta", "Medicina", "2025-03-01", "3,4"),
	))

	assert.Equal(t, 4, summary.TotalRows)
	assert.Equal(t, summary.TotalRows, summary.Imported+summary.Failed)
	assert.Len(t, summary.Rows, summary.TotalRows)
	for i, r := range summary.Rows {
		assert.True(t, r.State.Terminal())
		assert.Equal(t, i+2, r.Row)
	}
}

func TestImportFileErrorsAbortBeforeRows(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	_, err := service.Import(context.Background(), Request{
		FileName: "proyectos.xlsx",
		Data:     strings.NewReader(string(workbook(t, row("Titulo", "Estado")))),
	})
	require.Error(t, err)
	assert.True(t, IsFileError(err))
	assert.Zero(t, store.Calls("catalog.modalities"))
}

func TestImportConfigurationErrors(t *testing.T) {
	payload := workbook(t, baseHeader, row("A", "Investigación", "En curso", "Ingeniería", "2025-03-01", "1"))

	t.Run("missing faculty", func(t *testing.T) {
		store := newSeededStore(t)
		service := newTestService(t, store, WithDefaults(Defaults{
			DocumentType:  "CC",
			Faculty:       "Facultad de Artes",
			AcademicLevel: "Pregrado",
		}))
		_, err := service.Import(context.Background(), Request{FileName: "p.xlsx", Data: strings.NewReader(string(payload))})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfiguration))
		assert.False(t, IsFileError(err))
		assert.Empty(t, store.Projects())
	})

	t.Run("missing roles", func(t *testing.T) {
		store := memstore.New()
		store.SeedDocumentType("CC", "Cédula")
		store.SeedFaculty("Facultad de Ingeniería")
		store.SeedAcademicLevel("Pregrado")
		store.SeedModality("Investigación", "investigacion")
		service := newTestService(t, store)
		_, err := service.Import(context.Background(), Request{FileName: "p.xlsx", Data: strings.NewReader(string(payload))})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfiguration))
		assert.Contains(t, err.Error(), "advisor, student")
	})
}

func TestPreviewDoesNotWrite(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	payload := workbook(t,
		append(append([]interface{}{}, baseHeader...), "Observaciones"),
		row("A", "Investigación", "Nuevo", "Ingeniería", "2025-03-01", "1", "x"),
		row("B", "Investigación", "Nuevo", "Ingeniería", "2025-03-01", "1", "y"),
		row("C", "Investigación", "Nuevo", "Ingeniería", "nope", "2", "z"),
	)
	result, err := service.Preview(context.Background(), PreviewRequest{
		FileName: "proyectos.xlsx",
		Data:     strings.NewReader(string(payload)),
		Limit:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 1, result.ValidRows)
	assert.Equal(t, 2, result.InvalidRows)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, []string{`student "1" already has an active project`}, result.Rows[1].Errors)

	require.Len(t, result.Headers, 7)
	assert.True(t, result.Headers[0].Required)
	assert.False(t, result.Headers[6].Recognized)

	assert.Empty(t, store.Projects())
	assert.Len(t, store.Statuses(), 2)
	assert.Zero(t, store.Calls("people.create"))
}

func TestImportRecordsMetrics(t *testing.T) {
	store := newSeededStore(t)
	reg := prometheus.NewRegistry()
	service := newTestService(t, store, WithMetrics(NewMetrics(reg)))

	runImport(t, service, workbook(t,
		baseHeader,
		row("A", "Investigación", "En curso", "Ingeniería", "2025-03-01", "1"),
		row("B", "Investigación", "En curso", "Ingeniería", "bad", "2"),
	))

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				key += ":" + label.GetValue()
			}
			counts[key] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, counts["gradtrack_import_rows_total:committed"])
	assert.Equal(t, 1.0, counts["gradtrack_import_rows_total:invalid"])
	assert.Equal(t, 1.0, counts["gradtrack_import_runs_total:partial"])
}

func TestListLogsFiltersByFile(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	_, _ = service.Import(context.Background(), Request{
		FileName: "a.xlsx",
		Data:     strings.NewReader(string(workbook(t, baseHeader, row("A", "Investigación", "En curso", "Ingeniería", "bad", "1")))),
	})
	_, _ = service.Import(context.Background(), Request{
		FileName: "b.xlsx",
		Data:     strings.NewReader(string(workbook(t, baseHeader, row("B", "Investigación", "En curso", "Ingeniería", "bad", "2")))),
	})

	logs, err := service.ListLogs(context.Background(), "b.xlsx", 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "b.xlsx", logs[0].FileName)
}

func TestImportRejectsRowWithoutStudents(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	summary := runImport(t, service, workbook(t,
		baseHeader,
		row("Sistema X", "Investigación", "En curso", "Ingeniería", "2025-03-01", ""),
		row("Sistema Y", "Investigación", "En curso", "Ingeniería", "2025-03-01", " ; , "),
	))

	require.Len(t, summary.Rows, 2)
	for _, outcome := range summary.Rows {
		assert.Equal(t, RowError, outcome.Status)
		assert.Equal(t, []string{"at least one student is required"}, outcome.Messages)
	}
	assert.Empty(t, store.Projects())
	assert.Empty(t, store.Assignments())
	assert.Zero(t, store.Calls("people.create"))
	assert.Zero(t, store.Calls("projects.create"))
}

func TestImportRejectsThreeAdvisors(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	header := append(append([]interface{}{}, baseHeader...), "Asesores")
	summary := runImport(t, service, workbook(t,
		header,
		row("Sistema X", "Investigación", "En curso", "Ingeniería", "2025-03-01", "111", "201, 202, 203"),
	))

	require.Len(t, summary.Rows, 1)
	assert.Equal(t, RowError, summary.Rows[0].Status)
	assert.Equal(t, []string{"a project can have at most 2 advisors (got 3)"}, summary.Rows[0].Messages)
	assert.Empty(t, store.Projects())
	assert.Empty(t, store.Assignments())
	assert.Zero(t, store.Calls("people.create"))
	for _, doc := range []string{"111", "201", "202", "203"} {
		_, ok := store.Person(doc)
		assert.False(t, ok, "person %s was not created", doc)
	}
}

func TestImportDocumentsDifferingOnlyInPunctuationOrCase(t *testing.T) {
	store := newSeededStore(t)
	service := newTestService(t, store)

	documents := []string{"1.234", "1234", "AB99", "ab99"}
	rows := [][]interface{}{baseHeader}
	for i, doc := range documents {
		rows = append(rows, row(fmt.Sprintf("Proyecto %d", i), "Investigación", "En curso", "Ingeniería", "2025-03-01", doc))
	}

	summary := runImport(t, service, workbook(t, rows...))
	assert.Equal(t, 4, summary.Imported, summary.Rows)
	assert.Zero(t, summary.Failed)

	emails := map[string]bool{}
	for _, doc := range documents {
		person, ok := store.Person(doc)
		require.True(t, ok, "person %s stored", doc)
		emails[person.Email] = true
	}
	assert.Len(t, emails, 4)
}

// flakyPeople fails the first batch lookup and then delegates.
type flakyPeople struct {
	repository.PersonRepository
	failed bool
}

func (p *flakyPeople) ListByDocuments(ctx context.Context, documents []string) ([]domain.Person, error) {
	if !p.failed {
		p.failed = true
		return nil, errors.New("connection reset by peer")
	}
	return p.PersonRepository.ListByDocuments(ctx, documents)
}

func TestImportLookupFailureDoesNotLeakIntoLaterRows(t *testing.T) {
	store := newSeededStore(t)
	repos := store.Repositories()
	repos.People = &flakyPeople{PersonRepository: repos.People}
	service := newTestServiceWithRepos(t, repos)

	summary := runImport(t, service, workbook(t,
		baseHeader,
		row("Primero", "Investigación", "En curso", "Ingeniería", "2025-03-01", "555"),
		row("Segundo", "Investigación", "En curso", "Ingeniería", "2025-03-01", "555"),
	))

	require.Len(t, summary.Rows, 2)
	assert.Equal(t, []string{validateFailedMessage}, summary.Rows[0].Messages)
	assert.Equal(t, RowSuccess, summary.Rows[1].Status, summary.Rows[1].Messages)
	assert.Equal(t, 1, summary.Imported)

	projects := store.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, "Segundo", projects[0].Title)
}
