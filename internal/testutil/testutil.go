// Package testutil holds fixtures, a fake engine backend and HTTP helpers
// shared by the package tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// AssertStatusCode reports a mismatched HTTP status without stopping the test.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest builds a request for an in-process handler call.
func NewTestRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// ServeJSON calls h with a GET for target, checks the status and decodes
// the body into v. v may be nil when only the status matters.
func ServeJSON(t testing.TB, h http.HandlerFunc, target string, wantStatus int, v any) *httptest.ResponseRecorder {
	t.Helper()
	w := NewTestRecorder()
	h(w, NewTestRequest(http.MethodGet, target))
	AssertStatusCode(t, w.Code, wantStatus)
	if v != nil {
		if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
			t.Fatalf("decode %s response: %v", target, err)
		}
	}
	return w
}
