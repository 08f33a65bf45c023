package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/dto"
)

// Envelope is dto.Response with the payload left undecoded.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *dto.ErrorInfo  `json:"error,omitempty"`
	Meta    *dto.Meta       `json:"meta,omitempty"`
}

// APIResponse is a recorded response and its decoded envelope.
type APIResponse struct {
	Status   int
	Header   http.Header
	Envelope Envelope
}

// APIClient drives an http.Handler in-process, optionally as an authenticated user.
type APIClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

// NewAPIClient creates an anonymous client for handler.
func NewAPIClient(t *testing.T, handler http.Handler) *APIClient {
	return &APIClient{t: t, handler: handler}
}

// WithToken returns a copy of the client that sends token as a bearer credential.
func (c *APIClient) WithToken(token string) *APIClient {
	cp := *c
	cp.token = token
	return &cp
}

// Do sends a request. A non-nil body is encoded as JSON.
func (c *APIClient) Do(method, path string, body any) APIResponse {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err, "Failed to marshal request body")
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)

	resp := APIResponse{Status: w.Code, Header: w.Header()}
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &resp.Envelope), "Failed to parse JSON response: %s", w.Body.String())
	}
	return resp
}

// Get sends a GET request.
func (c *APIClient) Get(path string) APIResponse {
	c.t.Helper()
	return c.Do(http.MethodGet, path, nil)
}

// Post sends a POST request with a JSON body.
func (c *APIClient) Post(path string, body any) APIResponse {
	c.t.Helper()
	return c.Do(http.MethodPost, path, body)
}

// Patch sends a PATCH request with a JSON body.
func (c *APIClient) Patch(path string, body any) APIResponse {
	c.t.Helper()
	return c.Do(http.MethodPatch, path, body)
}

// DecodeData unmarshals the envelope payload into T.
func DecodeData[T any](t *testing.T, resp APIResponse) T {
	t.Helper()

	var out T
	require.NotEmpty(t, resp.Envelope.Data, "response has no data")
	require.NoError(t, json.Unmarshal(resp.Envelope.Data, &out), "Failed to decode response data")
	return out
}

// AssertSuccess asserts a successful envelope with the given status.
func AssertSuccess(t *testing.T, resp APIResponse, status int) {
	t.Helper()

	assert.Equal(t, status, resp.Status, "Unexpected status code")
	assert.True(t, resp.Envelope.Success, "Expected success to be true")
	assert.Nil(t, resp.Envelope.Error, "Expected no error")
}

// AssertError asserts a failed envelope with the given status and error code.
func AssertError(t *testing.T, resp APIResponse, status int, code string) {
	t.Helper()

	assert.Equal(t, status, resp.Status, "Unexpected status code")
	assert.False(t, resp.Envelope.Success, "Expected success to be false")
	if assert.NotNil(t, resp.Envelope.Error, "Expected error object in response") {
		assert.Equal(t, code, resp.Envelope.Error.Code, "Unexpected error code")
	}
}
