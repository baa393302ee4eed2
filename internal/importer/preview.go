package importer

import (
	"context"
	"io"
	"strings"
)

// PreviewRequest describes a dry run over an uploaded file.
type PreviewRequest struct {
	FileName string
	Data     io.Reader
	Limit    int
}

// PreviewHeader describes how one header was recognised.
type PreviewHeader struct {
	Name          string `json:"name"`
	OriginalLabel string `json:"originalLabel"`
	Required      bool   `json:"required"`
	Recognized    bool   `json:"recognized"`
}

// PreviewRow captures sample data and validation feedback.
type PreviewRow struct {
	RowNumber int               `json:"rowNumber"`
	Values    map[string]string `json:"values"`
	Errors    []string          `json:"errors,omitempty"`
}

// PreviewResult returns preview metadata back to clients.
type PreviewResult struct {
	TotalRows   int             `json:"totalRows"`
	ValidRows   int             `json:"validRows"`
	InvalidRows int             `json:"invalidRows"`
	Headers     []PreviewHeader `json:"headers"`
	Rows        []PreviewRow    `json:"rows"`
}

// Preview validates every row without writing anything. Rows that would be
// imported count as assigned for the rows after them, as in a real run.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (PreviewResult, error) {
	result := PreviewResult{
		Headers: []PreviewHeader{},
		Rows:    []PreviewRow{},
	}

	sheet, err := s.openSheet(Request{FileName: req.FileName, Data: req.Data})
	if err != nil {
		return result, err
	}
	defer sheet.Close()

	seed, err := s.loadSeed(ctx)
	if err != nil {
		return result, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.defaults.PreviewLimit
	}

	headers := sheet.Headers()
	for _, h := range headers {
		result.Headers = append(result.Headers, PreviewHeader{
			Name:          h.Key,
			OriginalLabel: h.Raw,
			Required:      isRequiredColumn(h.Key),
			Recognized:    isKnownColumn(h.Key),
		})
	}

	res := newResolver(s.repos, seed, s.defaults.PlaceholderEmailDomain, s.log)
	validator := &rowValidator{resolver: res, date1904: sheet.Date1904()}

	for sheet.Next() {
		row := newImportRow(sheet.Row(), headers)
		result.TotalRows++

		validated, messages, err := validator.validate(ctx, row)
		if err != nil {
			return result, err
		}
		if len(messages) == 0 {
			result.ValidRows++
			res.markAssigned(validated.Students)
		} else {
			result.InvalidRows++
		}

		if len(result.Rows) < limit {
			values := make(map[string]string, len(row.Fields))
			for k, v := range row.Fields {
				if strings.TrimSpace(v) != "" {
					values[k] = v
				}
			}
			result.Rows = append(result.Rows, PreviewRow{
				RowNumber: row.Number,
				Values:    values,
				Errors:    messages,
			})
		}
	}
	if err := sheet.Err(); err != nil {
		return result, err
	}
	return result, nil
}
