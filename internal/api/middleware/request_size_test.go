package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestSizeRejectsOversizedBody(t *testing.T) {
	var readErr error
	h := RequestSize(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/tournaments", strings.NewReader(strings.Repeat("x", 64)))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var tooLarge *http.MaxBytesError
	require.True(t, errors.As(readErr, &tooLarge))
	require.EqualValues(t, 16, tooLarge.Limit)
}

func TestRequestSizeAllowsSmallBody(t *testing.T) {
	var body []byte
	h := RequestSize(DefaultMaxBodySize)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader(`{"name":"Falcons"}`))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, `{"name":"Falcons"}`, string(body))
}
