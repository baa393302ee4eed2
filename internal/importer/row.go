package importer

import "strings"

const (
	maxStudents = 2
	maxAdvisors = 2
)

// importRow is a data row keyed by canonical column names.
type importRow struct {
	Number int
	Fields map[string]string
}

func newImportRow(raw RawRow, headers []Header) importRow {
	row := importRow{Number: raw.Number, Fields: make(map[string]string, len(headers))}
	for _, header := range headers {
		if _, seen := row.Fields[header.Key]; seen {
			continue
		}
		row.Fields[header.Key] = strings.TrimSpace(raw.Cells[header.Raw])
	}
	return row
}

func (r importRow) get(column string) string {
	return r.Fields[column]
}

// splitList splits a list cell on ',', ';' or '|' and drops empty entries.
func splitList(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func duplicates(values []string) []string {
	seen := make(map[string]bool, len(values))
	var dups []string
	for _, v := range values {
		if seen[v] {
			dups = append(dups, v)
			continue
		}
		seen[v] = true
	}
	return dups
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
