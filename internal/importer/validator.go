package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/gradtrack/internal/domain"
)

const acceptedDateFormats = "YYYY-MM-DD or DD-MM-YYYY"

// validatedRow is a row that passed every check. References are still names;
// they are resolved only once the row is known to be importable.
type validatedRow struct {
	Number     int
	Title      string
	Summary    string
	Objectives string
	Modality   domain.Modality
	Status     string
	Program    string
	Company    string
	StartDate  time.Time
	EndDate    *time.Time
	Students   []string
	Advisors   []string
}

// rowValidator applies the row rules. It reads storage but never writes.
type rowValidator struct {
	resolver *resolver
	date1904 bool
}

// validate evaluates every rule and returns all failures at once. The error
// is reserved for storage failures while checking the row.
func (v *rowValidator) validate(ctx context.Context, row importRow) (validatedRow, []string, error) {
	var messages []string
	fail := func(format string, args ...any) {
		messages = append(messages, fmt.Sprintf(format, args...))
	}

	out := validatedRow{
		Number:     row.Number,
		Title:      row.get(colTitle),
		Summary:    row.get(colSummary),
		Objectives: row.get(colObjectives),
		Status:     row.get(colStatus),
		Program:    row.get(colProgram),
		Company:    row.get(colCompany),
	}

	if out.Title == "" {
		fail("%q is required", colTitle)
	}

	if modality := row.get(colModality); modality == "" {
		fail("%q is required", colModality)
	} else if m, ok := v.resolver.modality(modality); ok {
		out.Modality = m
	} else {
		fail("unknown modality %q", modality)
	}

	for _, col := range []string{colStatus, colProgram} {
		value := row.get(col)
		switch {
		case value == "":
			fail("%q is required", col)
		case NormalizeValue(value) == "":
			fail("%q must contain letters or digits, got %q", col, value)
		}
	}
	if out.Company != "" && NormalizeValue(out.Company) == "" {
		fail("%q must contain letters or digits, got %q", colCompany, out.Company)
	}

	startOK := false
	if raw := row.get(colStartDate); raw == "" {
		fail("%q is required (expected date format %s)", colStartDate, acceptedDateFormats)
	} else if start, ok := parseDate(raw, v.date1904); ok {
		out.StartDate = start
		startOK = true
	} else {
		fail("%q has an invalid date %q (expected date format %s)", colStartDate, raw, acceptedDateFormats)
	}

	if raw := row.get(colEndDate); raw != "" {
		if end, ok := parseDate(raw, v.date1904); !ok {
			fail("%q has an invalid date %q (expected date format %s)", colEndDate, raw, acceptedDateFormats)
		} else if startOK && end.Before(out.StartDate) {
			fail("%q (%s) must not be before %q (%s)", colEndDate, end.Format("2006-01-02"), colStartDate, out.StartDate.Format("2006-01-02"))
		} else {
			out.EndDate = &end
		}
	}

	students := splitList(row.get(colStudents))
	switch {
	case len(students) == 0:
		fail("at least one student is required")
	case len(students) > maxStudents:
		fail("a project can have at most %d students (got %d)", maxStudents, len(students))
	}
	for _, dup := range distinct(duplicates(students)) {
		fail("student %q is listed more than once", dup)
	}

	advisors := splitList(row.get(colAdvisors))
	if len(advisors) > maxAdvisors {
		fail("a project can have at most %d advisors (got %d)", maxAdvisors, len(advisors))
	}
	for _, dup := range distinct(duplicates(advisors)) {
		fail("advisor %q is listed more than once", dup)
	}

	studentSet := make(map[string]bool, len(students))
	for _, s := range students {
		studentSet[s] = true
	}
	for _, a := range distinct(advisors) {
		if studentSet[a] {
			fail("document %q cannot be both student and advisor", a)
		}
	}

	out.Students = distinct(students)
	out.Advisors = distinct(advisors)

	if len(out.Students) > 0 {
		people, err := v.resolver.lookupPeople(ctx, out.Students)
		if err != nil {
			return validatedRow{}, nil, err
		}
		for i, doc := range out.Students {
			active, err := v.resolver.hasActiveProject(ctx, doc, people[i])
			if err != nil {
				return validatedRow{}, nil, err
			}
			if active {
				fail("student %q already has an active project", doc)
			}
		}
	}

	return out, messages, nil
}
