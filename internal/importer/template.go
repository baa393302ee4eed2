package importer

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	templateSheet       = "Proyectos"
	instructionsSheet   = "Instrucciones"
	TemplateFileName    = "plantilla_proyectos.xlsx"
	TemplateContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var templateColumns = []struct {
	key     string
	label   string
	example string
	help    string
}{
	{colTitle, "Titulo", "Sistema de riego inteligente", "Project title."},
	{colModality, "Modalidad", "Investigación", "One of the configured modalities."},
	{colStatus, "Estado", "En curso", "Created on first use when unknown."},
	{colProgram, "Programa", "Ingeniería de Sistemas", "Created under the default faculty when unknown."},
	{colStartDate, "Fecha_inicio", "2025-03-01", "Date as YYYY-MM-DD or DD-MM-YYYY."},
	{colEndDate, "Fecha_fin", "", "Optional. Not before Fecha_inicio."},
	{colStudents, "Estudiantes", "1010123456; 1010654321", "1 or 2 document numbers separated by , ; or |."},
	{colAdvisors, "Asesores", "79123456", "Up to 2 document numbers."},
	{colCompany, "Empresa", "", "Optional partner company."},
	{colSummary, "Resumen", "", "Optional."},
	{colObjectives, "Objetivos", "", "Optional."},
}

// Template builds an empty import workbook with the expected headers, one
// example row and an instructions sheet.
func (s *Service) Template() ([]byte, error) {
	return BuildTemplate()
}

// BuildTemplate renders the template workbook; it needs no storage.
func BuildTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return nil, errors.Wrap(err, "rename template sheet")
	}

	header := make([]interface{}, len(templateColumns))
	example := make([]interface{}, len(templateColumns))
	for i, col := range templateColumns {
		header[i] = col.label
		example[i] = col.example
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "write template header")
	}
	if err := f.SetSheetRow(templateSheet, "A2", &example); err != nil {
		return nil, errors.Wrap(err, "write template example")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "create header style")
	}
	lastCell, err := excelize.CoordinatesToCellName(len(templateColumns), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(templateSheet, "A1", lastCell, bold); err != nil {
		return nil, errors.Wrap(err, "style template header")
	}
	lastCol, _, err := excelize.SplitCellName(lastCell)
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(templateSheet, "A", lastCol, 24); err != nil {
		return nil, errors.Wrap(err, "size template columns")
	}

	if _, err := f.NewSheet(instructionsSheet); err != nil {
		return nil, errors.Wrap(err, "create instructions sheet")
	}
	if err := f.SetSheetRow(instructionsSheet, "A1", &[]interface{}{"Columna", "Obligatoria", "Descripción"}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(instructionsSheet, "A1", "C1", bold); err != nil {
		return nil, err
	}
	for i, col := range templateColumns {
		required := "No"
		if isRequiredColumn(col.key) {
			required = "Sí"
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(instructionsSheet, cell, &[]interface{}{col.label, required, col.help}); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(instructionsSheet, "A", "C", 32); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "write template")
	}
	return buf.Bytes(), nil
}
