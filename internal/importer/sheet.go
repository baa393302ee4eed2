package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMalformedFile is returned when the payload cannot be read as a spreadsheet.
	ErrMalformedFile = errors.New("malformed spreadsheet")
	// ErrEmptyFile is returned when the sheet has no data rows.
	ErrEmptyFile = errors.New("spreadsheet has no data rows")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// MissingColumnsError lists required headers absent from the sheet.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// IsFileError reports whether err rejects the uploaded file as a whole.
func IsFileError(err error) bool {
	var missing *MissingColumnsError
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrMalformedFile) ||
		errors.Is(err, ErrEmptyFile) ||
		errors.As(err, &missing)
}

// Header is one column of the header row.
type Header struct {
	Raw string `json:"originalLabel"`
	Key string `json:"name"`
}

// RawRow is one non-empty data row keyed by the original header text.
type RawRow struct {
	Number int
	Cells  map[string]string
}

type rowSource interface {
	next() ([]string, bool, error)
	// line is the physical 1-based row number of the last row returned.
	line() int
	close() error
}

// Sheet iterates the data rows of the first worksheet. It is lazy and can be
// consumed only once.
type Sheet struct {
	source   rowSource
	headers  []Header
	date1904 bool
	current  RawRow
	pending  *RawRow
	err      error
	closed   bool
}

// OpenSheet parses the header row of the uploaded file and positions the
// iterator on the first data row.
func OpenSheet(fileName string, payload []byte) (*Sheet, error) {
	if len(payload) == 0 {
		return nil, errors.Wrap(ErrMalformedFile, "file is empty")
	}

	var (
		source   rowSource
		date1904 bool
		err      error
	)

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".xlsx", ".xlsm", ".xltx", "":
		source, date1904, err = openExcel(payload)
	case ".csv":
		source = openCSV(payload)
	case ".xls":
		return nil, errors.Wrap(ErrMalformedFile, "legacy .xls workbooks are not supported, save the file as .xlsx")
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", ext)
	}
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{source: source, date1904: date1904}
	if err := sheet.readHeader(); err != nil {
		_ = sheet.Close()
		return nil, err
	}
	if err := sheet.peek(); err != nil {
		_ = sheet.Close()
		return nil, err
	}
	return sheet, nil
}

func openExcel(payload []byte) (rowSource, bool, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, false, errors.Wrapf(ErrMalformedFile, "failed to open xlsx: %v", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, false, errors.Wrap(ErrMalformedFile, "excel file has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, false, errors.Wrapf(ErrMalformedFile, "failed to read rows from xlsx: %v", err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	return &excelSource{file: f, rows: rows}, date1904, nil
}

type excelSource struct {
	file    *excelize.File
	rows    *excelize.Rows
	current int
}

func (s *excelSource) next() ([]string, bool, error) {
	if !s.rows.Next() {
		return nil, false, s.rows.Error()
	}
	s.current++
	// Raw values keep date cells as serial numbers instead of a
	// locale-formatted string.
	cols, err := s.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, false, err
	}
	return cols, true, nil
}

func (s *excelSource) line() int { return s.current }

func (s *excelSource) close() error {
	rowsErr := s.rows.Close()
	fileErr := s.file.Close()
	if rowsErr != nil {
		return rowsErr
	}
	return fileErr
}

func openCSV(payload []byte) rowSource {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1
	csvReader.Comma = sniffDelimiter(payload)

	return &csvSource{reader: csvReader}
}

// sniffDelimiter picks ';' for spreadsheets exported with a Latin locale.
func sniffDelimiter(payload []byte) rune {
	firstLine := payload
	if idx := bytes.IndexByte(payload, '\n'); idx >= 0 {
		firstLine = payload[:idx]
	}
	if bytes.Count(firstLine, []byte{';'}) > bytes.Count(firstLine, []byte{','}) {
		return ';'
	}
	return ','
}

type csvSource struct {
	reader  *csv.Reader
	current int
}

func (s *csvSource) next() ([]string, bool, error) {
	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// encoding/csv skips blank lines, so take the line from the reader.
	s.current, _ = s.reader.FieldPos(0)
	return record, true, nil
}

func (s *csvSource) line() int { return s.current }

func (s *csvSource) close() error { return nil }

func (s *Sheet) readHeader() error {
	for {
		cells, ok, err := s.source.next()
		if err != nil {
			return errors.Wrapf(ErrMalformedFile, "failed to read header row: %v", err)
		}
		if !ok {
			return errors.Wrap(ErrEmptyFile, "no header row detected")
		}
		if isBlank(cells) {
			continue
		}
		s.headers = buildHeaders(cells)
		break
	}

	present := make(map[string]bool, len(s.headers))
	for _, h := range s.headers {
		present[h.Key] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

func buildHeaders(cells []string) []Header {
	headers := make([]Header, len(cells))
	seen := make(map[string]int)
	for idx, value := range cells {
		raw := strings.TrimSpace(value)
		key := canonicalColumn(raw)
		if key == "" {
			key = fmt.Sprintf("column_%d", idx+1)
		}
		if raw == "" {
			raw = key
		}
		base := key
		if count := seen[base]; count > 0 {
			key = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base]++
		headers[idx] = Header{Raw: raw, Key: key}
	}
	return headers
}

func (s *Sheet) peek() error {
	row, ok, err := s.readRow()
	if err != nil {
		return err
	}
	if !ok {
		return ErrEmptyFile
	}
	s.pending = &row
	return nil
}

func (s *Sheet) readRow() (RawRow, bool, error) {
	for {
		cells, ok, err := s.source.next()
		if err != nil {
			return RawRow{}, false, errors.Wrapf(ErrMalformedFile, "failed to read row %d: %v", s.source.line()+1, err)
		}
		if !ok {
			return RawRow{}, false, nil
		}
		if isBlank(cells) {
			continue
		}

		row := RawRow{Number: s.source.line(), Cells: make(map[string]string, len(s.headers))}
		for idx, header := range s.headers {
			value := ""
			if idx < len(cells) {
				value = cells[idx]
			}
			if _, dup := row.Cells[header.Raw]; dup {
				continue
			}
			row.Cells[header.Raw] = value
		}
		return row, true, nil
	}
}

// Headers returns the header row in column order.
func (s *Sheet) Headers() []Header {
	return append([]Header(nil), s.headers...)
}

// Next advances to the next data row.
func (s *Sheet) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	if s.pending != nil {
		s.current = *s.pending
		s.pending = nil
		return true
	}
	row, ok, err := s.readRow()
	if err != nil {
		s.err = err
		return false
	}
	if !ok {
		return false
	}
	s.current = row
	return true
}

// Row returns the row reached by the last call to Next.
func (s *Sheet) Row() RawRow {
	return s.current
}

// Err returns the first read error met by Next.
func (s *Sheet) Err() error {
	return s.err
}

// Date1904 reports whether serial dates use the 1904 epoch.
func (s *Sheet) Date1904() bool {
	return s.date1904
}

// Close releases the underlying workbook.
func (s *Sheet) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.source.close()
}

func isBlank(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
