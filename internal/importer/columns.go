package importer

// Canonical column keys of the project import sheet.
const (
	colTitle      = "titulo"
	colModality   = "modalidad"
	colStatus     = "estado"
	colProgram    = "programa"
	colStartDate  = "fecha_inicio"
	colStudents   = "estudiantes"
	colSummary    = "resumen"
	colObjectives = "objetivos"
	colCompany    = "empresa"
	colEndDate    = "fecha_fin"
	colAdvisors   = "asesores"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{colTitle, colModality, colStatus, colProgram, colStartDate, colStudents}

// OptionalColumns are recognised when present.
var OptionalColumns = []string{colSummary, colObjectives, colCompany, colEndDate, colAdvisors}

func isKnownColumn(key string) bool {
	for _, c := range RequiredColumns {
		if c == key {
			return true
		}
	}
	for _, c := range OptionalColumns {
		if c == key {
			return true
		}
	}
	return false
}

func isRequiredColumn(key string) bool {
	for _, c := range RequiredColumns {
		if c == key {
			return true
		}
	}
	return false
}
