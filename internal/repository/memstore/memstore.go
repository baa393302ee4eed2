// Package memstore is an in-memory implementation of the repository port.
// It keeps the same uniqueness rules as the PostgreSQL schema so the importer
// can be exercised without a database.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/gradtrack/internal/domain"
	"github.com/rpattn/gradtrack/internal/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Store holds every table in memory behind one mutex
type Store struct {
	mu sync.RWMutex

	statuses       map[string]domain.Status
	programs       map[string]domain.Program
	companies      map[string]domain.Company
	people         map[string]domain.Person
	projects       map[uuid.UUID]domain.Project
	assignments    []domain.ActorAssignment
	modalities     []domain.Modality
	documentTypes  map[string]domain.DocumentType
	faculties      map[string]domain.Faculty
	academicLevels map[string]domain.AcademicLevel
	roles          []domain.Role
	logs           []domain.ImportLogEntry

	// FailProjectWrite, when set, is consulted before a project is committed;
	// a non-nil error aborts the write with nothing stored.
	FailProjectWrite func(project domain.Project) error

	calls map[string]int
}

// New returns an empty store
func New() *Store {
	return &Store{
		statuses:       map[string]domain.Status{},
		programs:       map[string]domain.Program{},
		companies:      map[string]domain.Company{},
		people:         map[string]domain.Person{},
		projects:       map[uuid.UUID]domain.Project{},
		documentTypes:  map[string]domain.DocumentType{},
		faculties:      map[string]domain.Faculty{},
		academicLevels: map[string]domain.AcademicLevel{},
		calls:          map[string]int{},
	}
}

// Repositories exposes the store through the repository port
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Statuses:   statusRepo{s},
		Programs:   programRepo{s},
		Companies:  companyRepo{s},
		People:     personRepo{s},
		Projects:   projectRepo{s},
		Catalog:    catalogRepo{s},
		ImportLogs: logRepo{s},
	}
}

// Calls reports how many times an operation ran, keyed "<table>.<op>"
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

func (s *Store) track(op string) {
	s.calls[op]++
}

// SeedRole adds a stored role
func (s *Store) SeedRole(tag domain.RoleTag) domain.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	role := domain.Role{ID: uuid.New(), Tag: tag, Name: tag.DisplayName()}
	s.roles = append(s.roles, role)
	return role
}

// SeedModality adds a modality with the given display name and key
func (s *Store) SeedModality(name, nameKey string) domain.Modality {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := domain.Modality{ID: uuid.New(), Name: name, NameKey: nameKey}
	s.modalities = append(s.modalities, m)
	return m
}

// SeedStatus adds a status
func (s *Store) SeedStatus(name, nameKey string, order int) domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := domain.NewStatus(name, nameKey, order)
	s.statuses[nameKey] = st
	return st
}

// SeedDocumentType adds a document type
func (s *Store) SeedDocumentType(code, name string) domain.DocumentType {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := domain.DocumentType{ID: uuid.New(), Code: code, Name: name}
	s.documentTypes[code] = d
	return d
}

// SeedFaculty adds a faculty
func (s *Store) SeedFaculty(name string) domain.Faculty {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := domain.Faculty{ID: uuid.New(), Name: name}
	s.faculties[name] = f
	return f
}

// SeedAcademicLevel adds an academic level
func (s *Store) SeedAcademicLevel(name string) domain.AcademicLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := domain.AcademicLevel{ID: uuid.New(), Name: name}
	s.academicLevels[name] = l
	return l
}

// SeedPerson stores a person as-is
func (s *Store) SeedPerson(person domain.Person) domain.Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people[person.DocumentNumber] = person
	return person
}

// SeedAssignment stores an assignment without any checks
func (s *Store) SeedAssignment(a domain.ActorAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, a)
}

// Statuses returns a snapshot of stored statuses ordered by sort order
func (s *Store) Statuses() []domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Status, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// Projects returns a snapshot of stored projects ordered by title
func (s *Store) Projects() []domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// Assignments returns a snapshot of every stored assignment
func (s *Store) Assignments() []domain.ActorAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ActorAssignment(nil), s.assignments...)
}

// Person returns the stored person for a document, if any
func (s *Store) Person(document string) (domain.Person, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[document]
	return p, ok
}

// Companies returns a snapshot of stored companies
func (s *Store) Companies() []domain.Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	return out
}

// Programs returns a snapshot of stored programs
func (s *Store) Programs() []domain.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Program, 0, len(s.programs))
	for _, p := range s.programs {
		out = append(out, p)
	}
	return out
}

// Logs returns a snapshot of recorded import log entries
func (s *Store) Logs() []domain.ImportLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ImportLogEntry(nil), s.logs...)
}

type statusRepo struct{ s *Store }

func (r statusRepo) GetByKey(_ context.Context, nameKey string) (domain.Status, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("statuses.get")
	st, ok := r.s.statuses[nameKey]
	if !ok {
		return domain.Status{}, errors.Wrap(repository.ErrNotFound, "status "+nameKey)
	}
	return st, nil
}

func (r statusRepo) List(_ context.Context) ([]domain.Status, error) {
	return r.s.Statuses(), nil
}

func (r statusRepo) MaxSortOrder(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	max := 0
	for _, st := range r.s.statuses {
		if st.SortOrder > max {
			max = st.SortOrder
		}
	}
	return max, nil
}

func (r statusRepo) Create(_ context.Context, status domain.Status) (domain.Status, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("statuses.create")
	if existing, ok := r.s.statuses[status.NameKey]; ok {
		return existing, nil
	}
	r.s.statuses[status.NameKey] = status
	return status, nil
}

type programRepo struct{ s *Store }

func (r programRepo) GetByKey(_ context.Context, nameKey string) (domain.Program, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("programs.get")
	p, ok := r.s.programs[nameKey]
	if !ok {
		return domain.Program{}, errors.Wrap(repository.ErrNotFound, "program "+nameKey)
	}
	return p, nil
}

func (r programRepo) Create(_ context.Context, program domain.Program) (domain.Program, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("programs.create")
	if existing, ok := r.s.programs[program.NameKey]; ok {
		return existing, nil
	}
	r.s.programs[program.NameKey] = program
	return program, nil
}

type companyRepo struct{ s *Store }

func (r companyRepo) GetByKey(_ context.Context, nameKey string) (domain.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("companies.get")
	c, ok := r.s.companies[nameKey]
	if !ok {
		return domain.Company{}, errors.Wrap(repository.ErrNotFound, "company "+nameKey)
	}
	return c, nil
}

func (r companyRepo) Create(_ context.Context, company domain.Company) (domain.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("companies.create")
	if existing, ok := r.s.companies[company.NameKey]; ok {
		return existing, nil
	}
	for _, c := range r.s.companies {
		if c.TaxID == company.TaxID {
			return domain.Company{}, errors.Errorf("duplicate tax id %s", company.TaxID)
		}
	}
	r.s.companies[company.NameKey] = company
	return company, nil
}

type personRepo struct{ s *Store }

func (r personRepo) GetByDocument(_ context.Context, documentNumber string) (domain.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("people.get")
	p, ok := r.s.people[documentNumber]
	if !ok {
		return domain.Person{}, errors.Wrap(repository.ErrNotFound, "person "+documentNumber)
	}
	return p, nil
}

func (r personRepo) ListByDocuments(_ context.Context, documentNumbers []string) ([]domain.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("people.list")
	out := []domain.Person{}
	for _, doc := range documentNumbers {
		if p, ok := r.s.people[doc]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r personRepo) Create(_ context.Context, person domain.Person) (domain.Person, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("people.create")
	if existing, ok := r.s.people[person.DocumentNumber]; ok {
		return existing, nil
	}
	for _, p := range r.s.people {
		if strings.EqualFold(p.Email, person.Email) {
			return domain.Person{}, errors.Errorf("duplicate email %s", person.Email)
		}
	}
	r.s.people[person.DocumentNumber] = person
	return person, nil
}

type projectRepo struct{ s *Store }

func (r projectRepo) CreateWithAssignments(_ context.Context, project domain.Project, assignments []domain.ActorAssignment) (domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("projects.create")

	if r.s.FailProjectWrite != nil {
		if err := r.s.FailProjectWrite(project); err != nil {
			return domain.Project{}, err
		}
	}

	for _, a := range assignments {
		if !a.IsActiveStudent() {
			continue
		}
		if r.s.activeStudentLocked(a.PersonID) {
			return domain.Project{}, errors.Wrapf(repository.ErrActiveAssignment, "person %s", a.PersonID)
		}
	}

	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	r.s.projects[project.ID] = project
	for _, a := range assignments {
		a.ProjectID = project.ID
		r.s.assignments = append(r.s.assignments, a)
	}
	return project, nil
}

func (r projectRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.projects[id]
	if !ok {
		return domain.Project{}, errors.Wrap(repository.ErrNotFound, "project "+id.String())
	}
	return p, nil
}

func (r projectRepo) ListAssignments(_ context.Context, projectID uuid.UUID) ([]domain.ActorAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.ActorAssignment{}
	for _, a := range r.s.assignments {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r projectRepo) HasActiveStudentAssignment(_ context.Context, personID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("projects.active_student")
	return r.s.activeStudentLocked(personID), nil
}

func (s *Store) activeStudentLocked(personID uuid.UUID) bool {
	for _, a := range s.assignments {
		if a.PersonID == personID && a.IsActiveStudent() {
			return true
		}
	}
	return false
}

type catalogRepo struct{ s *Store }

func (r catalogRepo) ListModalities(_ context.Context) ([]domain.Modality, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.track("catalog.modalities")
	return append([]domain.Modality(nil), r.s.modalities...), nil
}

func (r catalogRepo) GetDocumentTypeByCode(_ context.Context, code string) (domain.DocumentType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.documentTypes[code]
	if !ok {
		return domain.DocumentType{}, errors.Wrap(repository.ErrNotFound, "document type "+code)
	}
	return d, nil
}

func (r catalogRepo) GetFacultyByName(_ context.Context, name string) (domain.Faculty, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.faculties[name]
	if !ok {
		return domain.Faculty{}, errors.Wrap(repository.ErrNotFound, "faculty "+name)
	}
	return f, nil
}

func (r catalogRepo) GetAcademicLevelByName(_ context.Context, name string) (domain.AcademicLevel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.academicLevels[name]
	if !ok {
		return domain.AcademicLevel{}, errors.Wrap(repository.ErrNotFound, "academic level "+name)
	}
	return l, nil
}

func (r catalogRepo) ListRoles(_ context.Context) ([]domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.Role(nil), r.s.roles...), nil
}

type logRepo struct{ s *Store }

func (r logRepo) Record(_ context.Context, entry domain.ImportLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.s.logs = append(r.s.logs, entry)
	return nil
}

func (r logRepo) List(_ context.Context, fileName string, limit int, offset int) ([]domain.ImportLogEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	out := []domain.ImportLogEntry{}
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		entry := r.s.logs[i]
		if fileName != "" && entry.FileName != fileName {
			continue
		}
		out = append(out, entry)
	}
	if offset >= len(out) {
		return []domain.ImportLogEntry{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
