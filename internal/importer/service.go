package importer

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rpattn/gradtrack/internal/domain"
	"github.com/rpattn/gradtrack/internal/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrConfiguration signals missing seed data. It is a deployment problem,
// not a problem with the uploaded file.
var ErrConfiguration = errors.New("import configuration error")

// Defaults names the seed data used when references are created on the fly.
type Defaults struct {
	DocumentType           string
	Faculty                string
	AcademicLevel          string
	PlaceholderEmailDomain string
	PreviewLimit           int
}

// DefaultDefaults matches the rows inserted by the seed migration.
func DefaultDefaults() Defaults {
	return Defaults{
		DocumentType:           "CC",
		Faculty:                "Facultad de Ingeniería",
		AcademicLevel:          "Pregrado",
		PlaceholderEmailDomain: "placeholder.gradtrack.local",
		PreviewLimit:           50,
	}
}

// Service imports graduation projects from spreadsheets.
type Service struct {
	repos    repository.Repositories
	roles    domain.RoleTable
	defaults Defaults
	log      logrus.FieldLogger
	metrics  *Metrics
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger used for run and row events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

// WithDefaults overrides the seed data names.
func WithDefaults(defaults Defaults) Option {
	return func(s *Service) { s.defaults = defaults }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// WithClock replaces time.Now for assignment timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an import service over the storage port. roles is the
// table resolved at startup.
func NewService(repos repository.Repositories, roles domain.RoleTable, opts ...Option) (*Service, error) {
	if err := repos.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		repos:    repos,
		roles:    roles,
		defaults: DefaultDefaults(),
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Request describes one uploaded file.
type Request struct {
	FileName string
	Data     io.Reader
}

// Import processes every data row in sheet order. File-level problems and
// configuration errors abort the run before any row is processed; row
// problems are reported in the summary.
func (s *Service) Import(ctx context.Context, req Request) (Summary, error) {
	started := time.Now()
	runID := uuid.New()
	log := s.log.WithFields(logrus.Fields{"run_id": runID.String(), "file": req.FileName})

	sheet, err := s.openSheet(req)
	if err != nil {
		log.WithError(err).Info("rejected import file")
		s.logImportError(ctx, runID, req.FileName, nil, err.Error())
		s.metrics.observeRun(string(OutcomeFailure), time.Since(started).Seconds())
		return Summary{}, err
	}
	defer sheet.Close()

	seed, err := s.loadSeed(ctx)
	if err != nil {
		log.WithError(err).Error("import aborted")
		return Summary{}, err
	}

	res := newResolver(s.repos, seed, s.defaults.PlaceholderEmailDomain, log)
	validator := &rowValidator{resolver: res, date1904: sheet.Date1904()}
	writer := &projectWriter{
		projects:    s.repos.Projects,
		studentRole: seed.studentRole,
		advisorRole: seed.advisorRole,
		now:         s.now,
	}
	headers := sheet.Headers()

	summary := newSummary()
	for sheet.Next() {
		row := newImportRow(sheet.Row(), headers)
		outcome := s.processRow(ctx, row, res, validator, writer, runID, req.FileName, log)
		s.metrics.observeRow(outcome.State)
		summary.add(outcome)
	}
	if err := sheet.Err(); err != nil {
		log.WithError(err).Error("import stopped while reading the file")
		s.logImportError(ctx, runID, req.FileName, nil, err.Error())
		s.metrics.observeRun(string(OutcomeFailure), time.Since(started).Seconds())
		return summary, err
	}

	outcome := summary.Outcome()
	s.metrics.observeRun(string(outcome), time.Since(started).Seconds())
	log.WithFields(logrus.Fields{
		"total":    summary.TotalRows,
		"imported": summary.Imported,
		"failed":   summary.Failed,
		"outcome":  outcome,
	}).Info("import finished")
	return summary, nil
}

func (s *Service) openSheet(req Request) (*Sheet, error) {
	if req.Data == nil {
		return nil, errors.Wrap(ErrMalformedFile, "file is required")
	}
	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedFile, "read upload: %v", err)
	}
	return OpenSheet(req.FileName, payload)
}

func (s *Service) processRow(
	ctx context.Context,
	row importRow,
	res *resolver,
	validator *rowValidator,
	writer *projectWriter,
	runID uuid.UUID,
	fileName string,
	log logrus.FieldLogger,
) RowOutcome {
	outcome := RowOutcome{Row: row.Number, Title: row.get(colTitle), State: StatePending}
	rowLog := log.WithField("row", row.Number)

	outcome.State = StateValidating
	validated, messages, err := validator.validate(ctx, row)
	if err != nil {
		rowLog.WithError(err).Error("row validation failed")
		s.logImportError(ctx, runID, fileName, &row.Number, err.Error())
		return failed(outcome, StateInvalid, validateFailedMessage)
	}
	if len(messages) > 0 {
		s.logImportError(ctx, runID, fileName, &row.Number, strings.Join(messages, "; "))
		return failed(outcome, StateInvalid, messages...)
	}
	outcome.State = StateValid
	rowLog.WithField("state", outcome.State.String()).Debug("row validated")

	outcome.State = StateWriting
	plan, err := s.resolve(ctx, res, validated)
	if err == nil {
		_, err = writer.write(ctx, plan)
	}
	if err != nil {
		rowLog.WithError(err).Error("row write failed")
		s.logImportError(ctx, runID, fileName, &row.Number, err.Error())
		return failed(outcome, StateWriteFailed, writeFailedMessage)
	}

	res.markAssigned(validated.Students)
	outcome.State = StateCommitted
	outcome.Status = RowSuccess
	outcome.Messages = []string{}
	return outcome
}

func failed(outcome RowOutcome, state RowState, messages ...string) RowOutcome {
	outcome.State = state
	outcome.Status = RowError
	outcome.Messages = messages
	return outcome
}

func (s *Service) resolve(ctx context.Context, res *resolver, row validatedRow) (projectPlan, error) {
	plan := projectPlan{Row: row}

	status, err := res.ResolveStatus(ctx, row.Status)
	if err != nil {
		return projectPlan{}, err
	}
	plan.Status = status

	program, err := res.ResolveProgram(ctx, row.Program)
	if err != nil {
		return projectPlan{}, err
	}
	plan.Program = program

	if row.Company != "" {
		company, err := res.ResolveCompany(ctx, row.Company)
		if err != nil {
			return projectPlan{}, err
		}
		plan.Company = &company
	}

	if plan.Students, err = res.ResolvePeople(ctx, row.Students); err != nil {
		return projectPlan{}, err
	}
	if len(row.Advisors) > 0 {
		if plan.Advisors, err = res.ResolvePeople(ctx, row.Advisors); err != nil {
			return projectPlan{}, err
		}
	}
	return plan, nil
}

// loadSeed reads the reference data shared by every row of a run.
func (s *Service) loadSeed(ctx context.Context) (runSeed, error) {
	var seed runSeed

	if err := s.roles.Require(domain.RoleStudent, domain.RoleAdvisor); err != nil {
		return seed, errors.Wrap(ErrConfiguration, err.Error())
	}
	seed.studentRole, _ = s.roles.Lookup(domain.RoleStudent)
	seed.advisorRole, _ = s.roles.Lookup(domain.RoleAdvisor)

	docType, err := s.repos.Catalog.GetDocumentTypeByCode(ctx, s.defaults.DocumentType)
	if err != nil {
		return seed, seedError(err, "default document type %q", s.defaults.DocumentType)
	}
	seed.documentType = docType

	faculty, err := s.repos.Catalog.GetFacultyByName(ctx, s.defaults.Faculty)
	if err != nil {
		return seed, seedError(err, "default faculty %q", s.defaults.Faculty)
	}
	seed.faculty = faculty

	level, err := s.repos.Catalog.GetAcademicLevelByName(ctx, s.defaults.AcademicLevel)
	if err != nil {
		return seed, seedError(err, "default academic level %q", s.defaults.AcademicLevel)
	}
	seed.level = level

	modalities, err := s.repos.Catalog.ListModalities(ctx)
	if err != nil {
		return seed, errors.Wrap(err, "list modalities")
	}
	if len(modalities) == 0 {
		return seed, errors.Wrap(ErrConfiguration, "no modalities are seeded")
	}
	seed.modalities = make(map[string]domain.Modality, len(modalities)*2)
	for _, m := range modalities {
		seed.modalities[NormalizeValue(m.Name)] = m
		if m.NameKey != "" {
			seed.modalities[m.NameKey] = m
		}
	}

	return seed, nil
}

func seedError(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errors.Wrapf(ErrConfiguration, format+" is not seeded", args...)
	}
	return errors.Wrapf(err, "load "+format, args...)
}

// ListLogs returns recorded import errors, newest first.
func (s *Service) ListLogs(ctx context.Context, fileName string, limit, offset int) ([]domain.ImportLogEntry, error) {
	if s.repos.ImportLogs == nil {
		return []domain.ImportLogEntry{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.ImportLogs.List(ctx, fileName, limit, offset)
}

func (s *Service) logImportError(ctx context.Context, runID uuid.UUID, fileName string, rowNumber *int, message string) {
	if s.repos.ImportLogs == nil {
		return
	}
	entry := domain.ImportLogEntry{
		ID:           uuid.New(),
		RunID:        runID,
		FileName:     fileName,
		RowNumber:    rowNumber,
		ErrorMessage: message,
		CreatedAt:    time.Now(),
	}
	if err := s.repos.ImportLogs.Record(ctx, entry); err != nil {
		s.log.WithError(err).WithField("run_id", runID.String()).Warn("failed to record import log")
	}
}
