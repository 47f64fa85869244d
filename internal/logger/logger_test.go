package logger_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/georgemunganga/prepick-backend/internal/logger"
)

func TestFromCtx_FallsBackToDefault(t *testing.T) {
	assert.NotNil(t, logger.FromCtx(context.Background()))
}

func TestMiddleware_TagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter(&buf, true)

	var sawLogger bool
	h := middleware.RequestID(logger.Middleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = logger.FromCtx(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.True(t, sawLogger)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"request_id"`)
	assert.Contains(t, buf.String(), `"status":418`)
}

func TestMiddleware_SilentHandlerLogsOK(t *testing.T) {
	var buf bytes.Buffer
	h := logger.Middleware(logger.NewWithWriter(&buf, true))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Contains(t, buf.String(), `"status":200`)
}
