package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/gradtrack/internal/auth"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// DefaultMaxUploadBytes bounds the multipart form kept in memory.
const DefaultMaxUploadBytes = 32 << 20

// RoutePrefix is the path the handler is mounted on. The handler also owns
// the /preview, /template and /logs paths below it.
const RoutePrefix = "/api/imports/projects"

// Handler exposes the import service over HTTP.
type Handler struct {
	service   *Service
	maxUpload int64
	validate  *validator.Validate
}

// NewHTTPHandler wraps the service. maxUpload <= 0 selects DefaultMaxUploadBytes.
func NewHTTPHandler(service *Service, maxUpload int64) http.Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handler{service: service, maxUpload: maxUpload, validate: validator.New()}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := auth.EnforceImportPermission(r.Context()); err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	routes := map[string]struct {
		method string
		handle http.HandlerFunc
	}{
		RoutePrefix:               {http.MethodPost, h.handleImport},
		RoutePrefix + "/preview":  {http.MethodPost, h.handlePreview},
		RoutePrefix + "/template": {http.MethodGet, h.handleTemplate},
		RoutePrefix + "/logs":     {http.MethodGet, h.handleListLogs},
	}

	route, ok := routes[strings.TrimSuffix(r.URL.Path, "/")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != route.method {
		w.Header().Set("Allow", route.method)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	route.handle(w, r)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	// Rows committed before a client disconnect stay committed, so the run
	// always completes.
	ctx := context.WithoutCancel(r.Context())
	summary, err := h.service.Import(ctx, Request{FileName: fileName, Data: bytes.NewReader(data)})
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	writeJSON(w, summary.Outcome().HTTPStatus(), summary)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.FormValue("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	result, err := h.service.Preview(r.Context(), PreviewRequest{
		FileName: fileName,
		Data:     bytes.NewReader(data),
		Limit:    limit,
	})
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTemplate(w http.ResponseWriter, _ *http.Request) {
	payload, err := h.service.Template()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", TemplateContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", TemplateFileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

type listLogsQuery struct {
	FileName string `validate:"max=255"`
	Limit    int    `validate:"gte=1,lte=500"`
	Offset   int    `validate:"gte=0"`
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := listLogsQuery{
		FileName: strings.TrimSpace(query.Get("fileName")),
		Limit:    50,
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("limit must be an integer"))
			return
		}
		params.Limit = parsed
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("offset must be an integer"))
			return
		}
		params.Offset = parsed
	}
	if err := h.validate.Struct(params); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid query"))
		return
	}

	logs, err := h.service.ListLogs(r.Context(), params.FileName, params.Limit, params.Offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.Wrap(err, "list logs"))
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errors.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return "", nil, false
		}
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid form data"))
		return "", nil, false
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "file required"))
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "failed to read file"))
		return "", nil, false
	}
	return header.Filename, data, true
}

func errorStatus(err error) int {
	if IsFileError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error          string   `json:"error"`
	MissingColumns []string `json:"missingColumns,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Error: err.Error()}
	var missing *MissingColumnsError
	if errors.As(err, &missing) {
		body.MissingColumns = missing.Columns
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
