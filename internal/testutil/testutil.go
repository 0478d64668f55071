// Package testutil provides shared helpers for HTTP handler tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Do runs a request with the given method and path against the handler and
// returns the recorder for further inspection.
func Do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

// Get runs a GET against the handler and asserts the expected status code.
func Get(t *testing.T, h http.Handler, path string, wantStatus int) *httptest.ResponseRecorder {
	t.Helper()
	rec := Do(t, h, http.MethodGet, path)
	AssertStatusCode(t, rec.Code, wantStatus)
	return rec
}

// GetJSON runs a GET against the handler, asserts a 200 and decodes the JSON
// response body into out.
func GetJSON(t *testing.T, h http.Handler, path string, out any) {
	t.Helper()
	rec := Get(t, h, path, http.StatusOK)
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}
