package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpattn/gradtrack/internal/auth"
	"github.com/rpattn/gradtrack/internal/domain"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/imports/projects", nil))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, http.StatusMultiStatus, entry.Data["status"])
	assert.Equal(t, "/api/imports/projects", entry.Data["path"])
}

func TestLoggingMiddlewareLogsServerErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestCallerRoleMiddleware(t *testing.T) {
	var got domain.RoleTag
	var present bool
	handler := CallerRoleMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, present = auth.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RoleHeader, " Coordinator ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, present)
	assert.Equal(t, domain.RoleCoordinator, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RoleHeader, "visitor")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, present)
}
