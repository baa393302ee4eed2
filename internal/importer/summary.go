package importer

import "net/http"

// RowStatus is the outcome of one row as reported to the caller.
type RowStatus string

const (
	RowSuccess RowStatus = "success"
	RowError   RowStatus = "error"
)

// RowState tracks a row through the import.
type RowState int

const (
	StatePending RowState = iota
	StateValidating
	StateInvalid
	StateValid
	StateWriting
	StateCommitted
	StateWriteFailed
)

func (s RowState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateValidating:
		return "validating"
	case StateInvalid:
		return "invalid"
	case StateValid:
		return "valid"
	case StateWriting:
		return "writing"
	case StateCommitted:
		return "committed"
	case StateWriteFailed:
		return "write_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the row.
func (s RowState) Terminal() bool {
	return s == StateInvalid || s == StateCommitted || s == StateWriteFailed
}

// RowOutcome is the per-row entry of a summary.
type RowOutcome struct {
	Row      int       `json:"row"`
	Status   RowStatus `json:"status"`
	Title    string    `json:"title,omitempty"`
	Messages []string  `json:"messages"`
	State    RowState  `json:"-"`
}

// Summary reports the result of one import run.
type Summary struct {
	TotalRows int          `json:"totalRows"`
	Imported  int          `json:"imported"`
	Failed    int          `json:"failed"`
	Rows      []RowOutcome `json:"rows"`
}

func newSummary() Summary {
	return Summary{Rows: []RowOutcome{}}
}

func (s *Summary) add(outcome RowOutcome) {
	if outcome.Messages == nil {
		outcome.Messages = []string{}
	}
	s.TotalRows++
	if outcome.Status == RowSuccess {
		s.Imported++
	} else {
		s.Failed++
	}
	s.Rows = append(s.Rows, outcome)
}

// Outcome classifies the run.
func (s Summary) Outcome() Outcome {
	return Classify(s.Imported, s.Failed)
}

// Outcome is the classification of a whole run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// Classify derives the run outcome from the row counters. A run that imported
// nothing is a failure.
func Classify(imported, failed int) Outcome {
	switch {
	case imported == 0:
		return OutcomeFailure
	case failed == 0:
		return OutcomeSuccess
	default:
		return OutcomePartial
	}
}

// HTTPStatus maps the outcome onto the status code returned to callers.
func (o Outcome) HTTPStatus() int {
	switch o {
	case OutcomeSuccess:
		return http.StatusCreated
	case OutcomePartial:
		return http.StatusMultiStatus
	default:
		return http.StatusBadRequest
	}
}
