package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpattn/gradtrack/internal/domain"
	"github.com/rpattn/gradtrack/internal/personloader"
	"github.com/rpattn/gradtrack/internal/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// statusSynonyms gives the display name used when a status is created from a
// known spelling.
var statusSynonyms = map[string]string{
	"encurso":    "En curso",
	"finalizado": "Finalizado",
	"enrevision": "En revisión",
	"propuesta":  "Propuesta",
	"aprobado":   "Aprobado",
	"cancelado":  "Cancelado",
}

// runSeed is the reference data every run needs before the first row.
type runSeed struct {
	documentType domain.DocumentType
	faculty      domain.Faculty
	level        domain.AcademicLevel
	studentRole  domain.Role
	advisorRole  domain.Role
	modalities   map[string]domain.Modality
}

// resolver turns names and documents into stored references, creating them
// on first use. One resolver serves exactly one run.
type resolver struct {
	repos       repository.Repositories
	seed        runSeed
	people      *personloader.PersonLoader
	emailDomain string
	log         logrus.FieldLogger

	statuses  map[string]domain.Status
	programs  map[string]domain.Program
	companies map[string]domain.Company
	persons   map[string]domain.Person

	// assigned holds student documents committed earlier in this run.
	assigned map[string]bool
}

func newResolver(repos repository.Repositories, seed runSeed, emailDomain string, log logrus.FieldLogger) *resolver {
	return &resolver{
		repos:       repos,
		seed:        seed,
		people:      personloader.NewPersonLoader(repos.People),
		emailDomain: emailDomain,
		log:         log,
		statuses:    map[string]domain.Status{},
		programs:    map[string]domain.Program{},
		companies:   map[string]domain.Company{},
		persons:     map[string]domain.Person{},
		assigned:    map[string]bool{},
	}
}

// modality looks up the closed modality set; it never creates.
func (r *resolver) modality(name string) (domain.Modality, bool) {
	m, ok := r.seed.modalities[NormalizeValue(name)]
	return m, ok
}

// ResolveStatus returns the status matching name, creating it after the
// current highest sort order when absent.
func (r *resolver) ResolveStatus(ctx context.Context, name string) (domain.Status, error) {
	key := NormalizeValue(name)
	if status, ok := r.statuses[key]; ok {
		return status, nil
	}

	status, err := r.repos.Statuses.GetByKey(ctx, key)
	if err == nil {
		r.statuses[key] = status
		return status, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Status{}, errors.Wrapf(err, "lookup status %q", name)
	}

	maxOrder, err := r.repos.Statuses.MaxSortOrder(ctx)
	if err != nil {
		return domain.Status{}, errors.Wrap(err, "read status order")
	}
	created, err := r.repos.Statuses.Create(ctx, domain.NewStatus(statusDisplayName(name, key), key, maxOrder+1))
	if err != nil {
		return domain.Status{}, errors.Wrapf(err, "create status %q", name)
	}
	r.log.WithFields(logrus.Fields{"status": created.Name, "sort_order": created.SortOrder}).Info("created status from import")
	r.statuses[key] = created
	return created, nil
}

func statusDisplayName(raw, key string) string {
	if name, ok := statusSynonyms[key]; ok {
		return name
	}
	return strings.Join(strings.Fields(raw), " ")
}

// ResolveProgram returns the program matching name. New programs are placed
// under the configured default faculty and academic level.
func (r *resolver) ResolveProgram(ctx context.Context, name string) (domain.Program, error) {
	key := NormalizeValue(name)
	if program, ok := r.programs[key]; ok {
		return program, nil
	}

	program, err := r.repos.Programs.GetByKey(ctx, key)
	if err == nil {
		r.programs[key] = program
		return program, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Program{}, errors.Wrapf(err, "lookup program %q", name)
	}

	display := strings.Join(strings.Fields(name), " ")
	created, err := r.repos.Programs.Create(ctx, domain.NewProgram(display, key, r.seed.faculty.ID, r.seed.level.ID))
	if err != nil {
		return domain.Program{}, errors.Wrapf(err, "create program %q", name)
	}
	r.log.WithFields(logrus.Fields{
		"program":        created.Name,
		"faculty":        r.seed.faculty.Name,
		"academic_level": r.seed.level.Name,
	}).Warn("created placeholder program from import")
	r.programs[key] = created
	return created, nil
}

// ResolveCompany returns the company matching name, creating it with a
// placeholder tax id when absent.
func (r *resolver) ResolveCompany(ctx context.Context, name string) (domain.Company, error) {
	key := NormalizeValue(name)
	if company, ok := r.companies[key]; ok {
		return company, nil
	}

	company, err := r.repos.Companies.GetByKey(ctx, key)
	if err == nil {
		r.companies[key] = company
		return company, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Company{}, errors.Wrapf(err, "lookup company %q", name)
	}

	display := strings.Join(strings.Fields(name), " ")
	created, err := r.repos.Companies.Create(ctx, domain.NewCompany(display, key, placeholderTaxID()))
	if err != nil {
		return domain.Company{}, errors.Wrapf(err, "create company %q", name)
	}
	r.log.WithField("company", created.Name).Info("created company from import")
	r.companies[key] = created
	return created, nil
}

// placeholderNamespace scopes the name-based ids behind placeholder emails.
var placeholderNamespace = uuid.MustParse("6f1c2d0e-8a4b-5c3d-9e7f-0a1b2c3d4e5f")

func placeholderTaxID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TMP-" + strings.ToUpper(hex[:12])
}

// lookupPeople fetches the given documents in one batch without creating
// anything. Absent documents are nil.
func (r *resolver) lookupPeople(ctx context.Context, documents []string) ([]*domain.Person, error) {
	out := make([]*domain.Person, len(documents))
	var pending []string
	for _, doc := range documents {
		if _, ok := r.persons[doc]; !ok {
			pending = append(pending, doc)
		}
	}

	loaded, err := r.people.LoadMany(ctx, pending)
	if err != nil {
		return nil, errors.Wrap(err, "load people")
	}
	byDoc := make(map[string]*domain.Person, len(pending))
	for i, doc := range pending {
		byDoc[doc] = loaded[i]
	}

	for i, doc := range documents {
		if person, ok := r.persons[doc]; ok {
			p := person
			out[i] = &p
			continue
		}
		if person := byDoc[doc]; person != nil {
			r.persons[doc] = *person
			out[i] = person
		}
	}
	return out, nil
}

// ResolvePersonByDocument returns the person holding document, creating an
// unconfirmed placeholder when nobody does.
func (r *resolver) ResolvePersonByDocument(ctx context.Context, document string) (domain.Person, error) {
	people, err := r.ResolvePeople(ctx, []string{document})
	if err != nil {
		return domain.Person{}, err
	}
	return people[0], nil
}

// ResolvePeople resolves every document, creating placeholders for the ones
// that are not stored yet.
func (r *resolver) ResolvePeople(ctx context.Context, documents []string) ([]domain.Person, error) {
	found, err := r.lookupPeople(ctx, documents)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Person, len(documents))
	for i, doc := range documents {
		if found[i] != nil {
			out[i] = *found[i]
			continue
		}
		if person, ok := r.persons[doc]; ok {
			out[i] = person
			continue
		}

		placeholder := domain.NewPerson(
			doc,
			r.seed.documentType.ID,
			fmt.Sprintf("Usuario Documento %s", doc),
			r.placeholderEmail(doc),
		)
		created, err := r.repos.People.Create(ctx, placeholder)
		if err != nil {
			return nil, errors.Wrapf(err, "create person %q", doc)
		}
		r.log.WithField("document", doc).Warn("created placeholder person from import")
		r.persons[doc] = created
		r.people.Prime(ctx, created)
		out[i] = created
	}
	return out, nil
}

// placeholderEmail derives a stable address from the exact document. Documents
// that do not survive normalization unchanged get a digest suffix, so "1.234"
// and "1234" or "AB99" and "ab99" never share an address.
func (r *resolver) placeholderEmail(document string) string {
	token := NormalizeValue(document)
	if token == document {
		return fmt.Sprintf("documento.%s@%s", token, r.emailDomain)
	}
	digest := strings.ReplaceAll(uuid.NewSHA1(placeholderNamespace, []byte(document)).String(), "-", "")[:12]
	if token == "" {
		token = "id"
	}
	return fmt.Sprintf("documento.%s.%s@%s", token, digest, r.emailDomain)
}

// hasActiveProject reports whether the student already holds an active
// project, either stored or committed earlier in this run.
func (r *resolver) hasActiveProject(ctx context.Context, document string, person *domain.Person) (bool, error) {
	if r.assigned[document] {
		return true, nil
	}
	if person == nil {
		return false, nil
	}
	active, err := r.repos.Projects.HasActiveStudentAssignment(ctx, person.ID)
	if err != nil {
		return false, errors.Wrapf(err, "check active project for %q", document)
	}
	return active, nil
}

func (r *resolver) markAssigned(documents []string) {
	for _, doc := range documents {
		r.assigned[doc] = true
	}
}
