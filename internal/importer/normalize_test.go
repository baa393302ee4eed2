package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"Fecha de Inicio ":   "fecha_de_inicio",
		"Título":             "titulo",
		"  ESTUDIANTES":      "estudiantes",
		"fecha--fin":         "fecha_fin",
		"Año (Académico)":    "ano_academico",
		"":                   "",
		"___":                "",
		"Programa Académico": "programa_academico",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeKey(in), "input %q", in)
	}
}

func TestNormalizeValue(t *testing.T) {
	cases := map[string]string{
		"Ingeniería  de Software": "ingenieriadesoftware",
		"En Curso":                "encurso",
		"en-curso":                "encurso",
		"EN REVISIÓN":             "enrevision",
		"Compañía S.A.S.":         "companiasas",
		"":                        "",
		"--":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeValue(in), "input %q", in)
	}
}

func TestCanonicalColumnAliases(t *testing.T) {
	assert.Equal(t, colStartDate, canonicalColumn("Fecha de inicio"))
	assert.Equal(t, colAdvisors, canonicalColumn("Asesor"))
	assert.Equal(t, colStudents, canonicalColumn("Estudiante"))
	assert.Equal(t, colTitle, canonicalColumn("Título del proyecto"))
	assert.Equal(t, colProgram, canonicalColumn("Programa"))
	assert.Equal(t, "observaciones", canonicalColumn("Observaciones"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, splitList("1, 2;3"))
	assert.Equal(t, []string{"10", "20"}, splitList(" 10 | 20 |"))
	assert.Empty(t, splitList(" ; , "))
	assert.Equal(t, []string{"111", "111"}, splitList("111;111"))
}
