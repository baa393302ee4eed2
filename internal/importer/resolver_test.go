package importer

import (
	"context"
	"testing"

	"github.com/rpattn/gradtrack/internal/domain"
	"github.com/rpattn/gradtrack/internal/repository/memstore"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, store *memstore.Store) *resolver {
	t.Helper()
	service := newTestService(t, store)
	seed, err := service.loadSeed(context.Background())
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	return newResolver(store.Repositories(), seed, "placeholder.test", logger)
}

func TestResolveStatusIsIdempotentWithinRun(t *testing.T) {
	store := newSeededStore(t)
	res := newTestResolver(t, store)
	ctx := context.Background()

	first, err := res.ResolveStatus(ctx, "Nuevo Estado")
	require.NoError(t, err)
	second, err := res.ResolveStatus(ctx, "  nuevo   ESTADO ")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Nuevo Estado", first.Name)
	assert.Equal(t, 3, first.SortOrder)
	assert.Equal(t, 1, store.Calls("statuses.create"))
	assert.Equal(t, 1, store.Calls("statuses.get"))
}

func TestResolveStatusCanonicalSynonyms(t *testing.T) {
	store := newSeededStore(t)
	res := newTestResolver(t, store)

	existing, err := res.ResolveStatus(context.Background(), "EN CURSO")
	require.NoError(t, err)
	assert.Equal(t, "En curso", existing.Name)
	assert.Zero(t, store.Calls("statuses.create"))

	created, err := res.ResolveStatus(context.Background(), "en revision")
	require.NoError(t, err)
	assert.Equal(t, "En revisión", created.Name)
	assert.Equal(t, "enrevision", created.NameKey)
}

func TestResolveProgramUsesDefaultFacultyAndLevel(t *testing.T) {
	store := newSeededStore(t)
	res := newTestResolver(t, store)

	program, err := res.ResolveProgram(context.Background(), "Ingeniería  de Sistemas")
	require.NoError(t, err)
	assert.Equal(t, "Ingeniería de Sistemas", program.Name)
	assert.Equal(t, res.seed.faculty.ID, program.FacultyID)
	assert.Equal(t, res.seed.level.ID, program.AcademicLevelID)

	again, err := res.ResolveProgram(context.Background(), "ingenieria de sistemas")
	require.NoError(t, err)
	assert.Equal(t, program.ID, again.ID)
	assert.Len(t, store.Programs(), 1)
}

func TestResolveCompanyPlaceholderTaxID(t *testing.T) {
	store := newSeededStore(t)
	res := newTestResolver(t, store)

	company, err := res.ResolveCompany(context.Background(), "Acme S.A.S.")
	require.NoError(t, err)
	assert.Regexp(t, `^TMP-[0-9A-F]{12}$`, company.TaxID)

	again, err := res.ResolveCompany(context.Background(), "ACME SAS")
	require.NoError(t, err)
	assert.Equal(t, company.ID, again.ID)
	assert.Equal(t, 1, store.Calls("companies.create"))
}

func TestResolvePersonCreatesPlaceholderOnce(t *testing.T) {
	store := newSeededStore(t)
	res := newTestResolver(t, store)
	ctx := context.Background()

	person, err := res.ResolvePersonByDocument(ctx, "1010-123")
	require.NoError(t, err)
	assert.Equal(t, "Usuario Documento 1010-123", person.FullName)
	assert.Regexp(t, `^documento\.1010123\.[0-9a-f]{12}@placeholder\.test$`, person.Email)
	assert.False(t, person.Confirmed)
	assert.Equal(t, res.seed.documentType.ID, person.DocumentTypeID)

	again, err := res.ResolvePersonByDocument(ctx, "1010-123")
	require.NoError(t, err)
	assert.Equal(t, person.ID, again.ID)
	assert.Equal(t, 1, store.Calls("people.create"))
}

func TestPlaceholderEmailDistinguishesExactDocuments(t *testing.T) {
	res := newTestResolver(t, newSeededStore(t))

	documents := []string{"1234", "1.234", "12-34", "ab99", "AB99", "Ab99", "---", "..."}
	seen := map[string]string{}
	for _, doc := range documents {
		email := res.placeholderEmail(doc)
		if previous, ok := seen[email]; ok {
			t.Fatalf("documents %q and %q share email %s", previous, doc, email)
		}
		seen[email] = doc
		assert.Equal(t, email, res.placeholderEmail(doc), "email for %q is stable", doc)
	}

	assert.Equal(t, "documento.1234@placeholder.test", res.placeholderEmail("1234"))
	assert.Regexp(t, `^documento\.1234\.[0-9a-f]{12}@placeholder\.test$`, res.placeholderEmail("1.234"))
	assert.Regexp(t, `^documento\.id\.[0-9a-f]{12}@placeholder\.test$`, res.placeholderEmail("---"))
}

func TestResolvePeopleBatchesLookups(t *testing.T) {
	store := newSeededStore(t)
	known := store.SeedPerson(domain.NewPerson("111", defaultDocumentTypeID(t, store), "Ana Gómez", "ana@example.edu"))
	res := newTestResolver(t, store)

	people, err := res.ResolvePeople(context.Background(), []string{"111", "222"})
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, known.ID, people[0].ID)
	assert.Equal(t, "Usuario Documento 222", people[1].FullName)
	assert.Equal(t, 1, store.Calls("people.list"))
	assert.Equal(t, 1, store.Calls("people.create"))
}

func defaultDocumentTypeID(t *testing.T, store *memstore.Store) uuid.UUID {
	t.Helper()
	docType, err := store.Repositories().Catalog.GetDocumentTypeByCode(context.Background(), "CC")
	require.NoError(t, err)
	return docType.ID
}
