package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsflow/guardian-ingest/internal/pipeline"
)

type stubRunner struct {
	result pipeline.Result
	err    error
	got    pipeline.Request
}

func (s *stubRunner) Run(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
	s.got = req
	return s.result, s.err
}

func TestServer_Invoke(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: pipeline.Result{
		Message:   "3 articles published to guardian_content.",
		Delivered: 3,
		State:     pipeline.StateDone,
	}}
	server := NewServer(runner, nil)

	body := []byte(`{"query": "turkey", "broker_ref": "guardian_content", "from_date": "2025-01-01"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/invoke", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "3 articles published to guardian_content."}`, rec.Body.String())
	assert.Equal(t, "turkey", runner.got.Query)
	assert.Equal(t, "guardian_content", runner.got.BrokerRef)
	assert.Equal(t, "2025-01-01", runner.got.FromDate)
}

func TestServer_Invoke_QuotaBlocked(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: pipeline.Result{
		Message: "Rate limit exceeded. No articles published to guardian_content.",
		State:   pipeline.StateBlocked,
	}}
	server := NewServer(runner, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/invoke",
		bytes.NewReader([]byte(`{"query": "turkey", "broker_ref": "guardian_content"}`)))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
}

func TestServer_Invoke_InvalidJSON(t *testing.T) {
	t.Parallel()

	server := NewServer(&stubRunner{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/invoke", bytes.NewReader([]byte(`{`)))
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Invoke_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", fmt.Errorf("%w: query is required", pipeline.ErrValidation), http.StatusBadRequest},
		{"authentication", fmt.Errorf("%w: API key is invalid", pipeline.ErrAuthentication), http.StatusBadGateway},
		{"transport", fmt.Errorf("%w: HTTP request failed", pipeline.ErrTransport), http.StatusBadGateway},
		{"storage", fmt.Errorf("%w: probe failed", pipeline.ErrStorage), http.StatusBadGateway},
		{"queue", fmt.Errorf("%w: resolve failed", pipeline.ErrQueue), http.StatusBadGateway},
		{"configuration", fmt.Errorf("%w: credential not set", pipeline.ErrConfiguration), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := NewServer(&stubRunner{err: tc.err}, nil)
			req := httptest.NewRequest(http.MethodPost, "/v1/invoke",
				bytes.NewReader([]byte(`{"query": "turkey", "broker_ref": "guardian_content"}`)))
			rec := httptest.NewRecorder()

			server.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := NewServer(&stubRunner{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	server := NewServer(&stubRunner{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
