package importer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	keyPattern   = regexp.MustCompile(`[^a-z0-9]+`)
	valuePattern = regexp.MustCompile(`[^a-z0-9]`)
)

// headerAliases maps frequent header spellings onto the canonical column keys.
var headerAliases = map[string]string{
	"titulo_del_proyecto":    colTitle,
	"titulo_proyecto":        colTitle,
	"nombre_del_proyecto":    colTitle,
	"modalidad_de_grado":     colModality,
	"estado_del_proyecto":    colStatus,
	"programa_academico":     colProgram,
	"fecha_de_inicio":        colStartDate,
	"fecha_inicial":          colStartDate,
	"fecha_de_fin":           colEndDate,
	"fecha_de_finalizacion":  colEndDate,
	"fecha_final":            colEndDate,
	"estudiante":             colStudents,
	"documentos_estudiantes": colStudents,
	"asesor":                 colAdvisors,
	"director":               colAdvisors,
	"directores":             colAdvisors,
	"empresa_vinculada":      colCompany,
	"objetivo":               colObjectives,
	"descripcion":            colSummary,
}

// stripAccents removes combining marks after canonical decomposition, so
// "Ingeniería" becomes "Ingenieria" and "ñ" becomes "n".
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeKey turns arbitrary header text into a snake_case key:
// "Fecha de Inicio " -> "fecha_de_inicio".
func NormalizeKey(header string) string {
	key := strings.ToLower(stripAccents(header))
	key = keyPattern.ReplaceAllString(key, "_")
	return strings.Trim(key, "_")
}

// NormalizeValue turns free text into a comparison token:
// "Ingeniería  de Software" -> "ingenieriadesoftware".
func NormalizeValue(text string) string {
	token := strings.ToLower(stripAccents(text))
	return valuePattern.ReplaceAllString(token, "")
}

// canonicalColumn resolves a header to the column key used by the validator.
func canonicalColumn(header string) string {
	key := NormalizeKey(header)
	if alias, ok := headerAliases[key]; ok {
		return alias
	}
	return key
}
