package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/toga/internal/api/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))

	t.Run("success logs at info with proxy-aware ip", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		req.RemoteAddr = "10.0.0.1:4321"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "INFO", line["level"])
		assert.Equal(t, "GET", line["method"])
		assert.Equal(t, "/api/items", line["path"])
		assert.Equal(t, float64(http.StatusOK), line["status"])
		assert.Equal(t, float64(2), line["bytes"])
		assert.Equal(t, "203.0.113.9", line["client_ip"])
	})

	t.Run("server error logs at error level", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/boom", nil)
		req.RemoteAddr = "10.0.0.1:4321"
		handler.ServeHTTP(httptest.NewRecorder(), req)

		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "ERROR", line["level"])
		assert.Equal(t, float64(http.StatusInternalServerError), line["status"])
		assert.Equal(t, "10.0.0.1", line["client_ip"])
	})
}
