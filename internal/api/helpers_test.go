package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/api"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// newTestRouter builds the full router around a mock engine.
func newTestRouter(t *testing.T, eng *mockEngine) http.Handler {
	t.Helper()

	h, err := api.NewRouter(context.Background(), &api.RouterDeps{
		Log:         testLogger(),
		Engine:      eng,
		StorageKind: "memory",
		CORSOrigins: []string{"http://localhost:3000"},
		Version:     "test-v1",
		Embeddings:  api.EmbeddingInfo{Provider: "fallback", Dimensions: 128},
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	return h
}

// doRequest performs an HTTP request against the handler and returns the recorder.
func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()

	if w.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

// expectError checks status and error code of an error response.
func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	expectStatus(t, w, status)

	var body map[string]string
	decode(t, w, &body)

	if body["code"] != code {
		t.Errorf("expected code %q, got %q", code, body["code"])
	}

	if body["request_id"] == "" {
		t.Error("expected request_id in error response")
	}
}
