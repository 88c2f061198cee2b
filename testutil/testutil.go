// Package testutil provides helpers for exercising twirl services in
// tests: a fluent request builder and response asserts for both wire
// formats and the JSON error envelope.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"google.golang.org/protobuf/proto"
)

// RequestBuilder constructs test HTTP requests with a fluent API.
type RequestBuilder struct {
	method  string
	path    string
	body    []byte
	headers map[string]string
}

// NewRequest creates a new request builder. The default method is POST.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		method:  "POST",
		path:    "/",
		headers: make(map[string]string),
	}
}

// POST sets the HTTP method to POST.
func (b *RequestBuilder) POST(path string) *RequestBuilder {
	b.method = "POST"
	b.path = path
	return b
}

// Method sets an arbitrary HTTP method, for exercising verb checks.
func (b *RequestBuilder) Method(method, path string) *RequestBuilder {
	b.method = method
	b.path = path
	return b
}

// WithJSON sets the request body as JSON and the matching Content-Type.
func (b *RequestBuilder) WithJSON(v any) *RequestBuilder {
	data, _ := json.Marshal(v)
	b.body = data
	b.headers["Content-Type"] = "application/json"
	return b
}

// WithProto sets the request body to the binary encoding of m and the
// matching Content-Type.
func (b *RequestBuilder) WithProto(t *testing.T, m proto.Message) *RequestBuilder {
	t.Helper()
	data, err := proto.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal proto request: %v", err)
	}
	b.body = data
	b.headers["Content-Type"] = "application/protobuf"
	return b
}

// WithBody sets the raw request body.
func (b *RequestBuilder) WithBody(body string) *RequestBuilder {
	b.body = []byte(body)
	return b
}

// WithHeader adds a header to the request.
func (b *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	b.headers[key] = value
	return b
}

// Build creates the HTTP request and a ResponseRecorder.
func (b *RequestBuilder) Build() (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if len(b.body) > 0 {
		req = httptest.NewRequest(b.method, b.path, bytes.NewReader(b.body))
	} else {
		req = httptest.NewRequest(b.method, b.path, nil)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	return req, httptest.NewRecorder()
}

// Serve builds the request and serves it to the handler.
func (b *RequestBuilder) Serve(h http.Handler) *httptest.ResponseRecorder {
	req, w := b.Build()
	h.ServeHTTP(w, req)
	return w
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if w.Code != expectedStatus {
		t.Errorf("expected status %d, got %d\nBody: %s", expectedStatus, w.Code, w.Body.String())
	}
}

// AssertContentType checks the response Content-Type header.
func AssertContentType(t *testing.T, w *httptest.ResponseRecorder, expected string) {
	t.Helper()
	if got := w.Header().Get("Content-Type"); got != expected {
		t.Errorf("expected Content-Type %q, got %q", expected, got)
	}
}

// AssertJSONBody decodes the response body and compares it with expected
// after normalizing both through JSON, so formatting differences are
// ignored.
func AssertJSONBody(t *testing.T, w *httptest.ResponseRecorder, expected any) {
	t.Helper()

	expectedJSON, _ := json.Marshal(expected)
	var expectedData, actualData any
	json.Unmarshal(expectedJSON, &expectedData)
	if err := json.Unmarshal(w.Body.Bytes(), &actualData); err != nil {
		t.Fatalf("failed to decode response body: %v\nBody: %s", err, w.Body.String())
	}

	if !reflect.DeepEqual(expectedData, actualData) {
		expectedStr, _ := json.MarshalIndent(expectedData, "", "  ")
		actualStr, _ := json.MarshalIndent(actualData, "", "  ")
		t.Errorf("response mismatch:\nExpected:\n%s\nActual:\n%s", expectedStr, actualStr)
	}
}

// AssertProtoBody decodes the binary response body into got and compares
// it with expected.
func AssertProtoBody(t *testing.T, w *httptest.ResponseRecorder, got, expected proto.Message) {
	t.Helper()
	if err := proto.Unmarshal(w.Body.Bytes(), got); err != nil {
		t.Fatalf("failed to decode proto response: %v", err)
	}
	if !proto.Equal(got, expected) {
		t.Errorf("proto response mismatch:\nExpected: %v\nActual:   %v", expected, got)
	}
}

// ErrorEnvelope is the decoded JSON error body.
type ErrorEnvelope struct {
	Code string            `json:"code"`
	Msg  string            `json:"msg"`
	Meta map[string]string `json:"meta"`
}

// AssertError checks that the response is a JSON error envelope with the
// expected code, and returns the envelope for further checks.
func AssertError(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) *ErrorEnvelope {
	t.Helper()

	AssertContentType(t, w, "application/json")

	var env ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode error envelope: %v\nBody: %s", err, w.Body.String())
	}
	if env.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (msg: %s)", expectedCode, env.Code, env.Msg)
	}
	if env.Meta == nil {
		t.Error("expected meta to be present in error envelope")
	}
	return &env
}
