package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies an error envelope with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var env Envelope[json.RawMessage]
	AssertJSONResponse(t, resp, &env)
	assert.Equal(t, "error", env.Status)
	assert.Contains(t, env.Message, expectedMessage, "error message mismatch")
}

// AssertFieldError verifies a validation envelope names field
func AssertFieldError(t *testing.T, resp *http.Response, field string) {
	t.Helper()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unexpected status code")

	var env Envelope[json.RawMessage]
	AssertJSONResponse(t, resp, &env)

	fields := make([]string, 0, len(env.Errors))
	for _, fe := range env.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, field, "missing field error")
}
