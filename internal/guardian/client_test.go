package guardian_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsflow/guardian-ingest/internal/guardian"
	"github.com/newsflow/guardian-ingest/internal/pipeline"
)

const searchFixture = `{
  "response": {
    "status": "ok",
    "userTier": "developer",
    "total": 39565,
    "pageSize": 10,
    "currentPage": 1,
    "orderBy": "newest",
    "results": [
      {
        "id": "world/2025/mar/27/bbc-reporter-mark-lowen",
        "type": "article",
        "sectionId": "world",
        "webPublicationDate": "2025-03-27T18:18:12Z",
        "webTitle": "BBC reporter arrested and deported from Turkey after covering protests",
        "webUrl": "https://www.theguardian.com/world/2025/mar/27/bbc-reporter-mark-lowen",
        "pillarName": "News"
      },
      {
        "id": "world/2025/mar/25/eight-journalists",
        "type": "article",
        "sectionId": "world",
        "webPublicationDate": "2025-03-25T16:38:14Z",
        "webTitle": "Eight journalists covering anti-government protests held in Turkey",
        "webUrl": "https://www.theguardian.com/world/2025/mar/25/eight-journalists",
        "pillarName": "News"
      },
      {
        "id": "world/2025/mar/24/journalists-arrested",
        "type": "article",
        "sectionId": "world",
        "webPublicationDate": "2025-03-24T17:04:13Z",
        "webTitle": "Journalists among more than 1,100 arrested in Turkey crackdown",
        "webUrl": "https://www.theguardian.com/world/2025/mar/24/journalists-arrested",
        "pillarName": "News"
      }
    ]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*guardian.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := guardian.NewClient(guardian.Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, nil)
	return client, server
}

func TestClient_Search(t *testing.T) {
	t.Parallel()

	var gotQuery map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		assert.Equal(t, "/search", r.URL.Path)
		_, _ = w.Write([]byte(searchFixture))
	})

	batch, err := client.Search(context.Background(), "turkey", "")
	require.NoError(t, err)
	require.Len(t, batch, 3)

	assert.Equal(t, []string{"turkey"}, gotQuery["q"])
	assert.Equal(t, []string{"newest"}, gotQuery["order-by"])
	assert.Equal(t, []string{"test-key"}, gotQuery["api-key"])
	assert.NotContains(t, gotQuery, "from-date", "omitted filter must not be sent, even empty")

	// Order preserved, extra upstream fields discarded.
	assert.Equal(t, "BBC reporter arrested and deported from Turkey after covering protests", batch[0].WebTitle)
	assert.Equal(t, "https://www.theguardian.com/world/2025/mar/24/journalists-arrested", batch[2].WebURL)
	assert.Equal(t, time.Date(2025, 3, 27, 18, 18, 12, 0, time.UTC), batch[0].WebPublicationDate)
}

func TestClient_Search_FromDateSentVerbatim(t *testing.T) {
	t.Parallel()

	var gotFromDate string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotFromDate = r.URL.Query().Get("from-date")
		_, _ = w.Write([]byte(`{"response": {"status": "ok", "results": []}}`))
	})

	_, err := client.Search(context.Background(), "turkey", "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", gotFromDate)
}

func TestClient_Search_EmptyResults(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"status": "ok", "total": 0, "results": []}}`))
	})

	batch, err := client.Search(context.Background(), "xyzzy", "")
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.NotNil(t, batch)
}

func TestClient_Search_MissingCredential(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls++
	}))
	t.Cleanup(server.Close)

	client := guardian.NewClient(guardian.Config{BaseURL: server.URL}, nil)
	_, err := client.Search(context.Background(), "turkey", "")

	require.ErrorIs(t, err, pipeline.ErrConfiguration)
	assert.Contains(t, err.Error(), "credential not set")
	assert.Zero(t, calls, "no network call without a credential")
}

func TestClient_Search_RejectedCredential(t *testing.T) {
	t.Parallel()

	// A rejected key comes back without the response envelope.
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "Invalid authentication credentials"}`))
	})

	_, err := client.Search(context.Background(), "turkey", "")
	require.ErrorIs(t, err, pipeline.ErrAuthentication)
	assert.Contains(t, err.Error(), "API key is invalid")
}

func TestClient_Search_MalformedDateFilter(t *testing.T) {
	t.Parallel()

	// A bad date filter keeps the envelope but drops the results list.
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"status": "error", "message": "from-date: invalid date"}}`))
	})

	_, err := client.Search(context.Background(), "turkey", "not-a-date")
	require.ErrorIs(t, err, pipeline.ErrValidation)
	assert.Contains(t, err.Error(), "invalid date format")
}

func TestClient_Search_ResultsNotAList(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"status": "ok", "results": {"unexpected": "shape"}}}`))
	})

	_, err := client.Search(context.Background(), "turkey", "")
	require.ErrorIs(t, err, pipeline.ErrValidation)
}

func TestClient_Search_TransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := guardian.NewClient(guardian.Config{APIKey: "test-key", BaseURL: server.URL}, nil)
	server.Close()

	_, err := client.Search(context.Background(), "turkey", "")
	require.ErrorIs(t, err, pipeline.ErrTransport)
	assert.Contains(t, err.Error(), "HTTP request failed")
}

func TestClient_Search_RowMissingField(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"status": "ok", "results": [
			{"webPublicationDate": "2025-03-27T18:18:12Z", "webUrl": "https://example.com/a"}
		]}}`))
	})

	_, err := client.Search(context.Background(), "turkey", "")
	require.ErrorIs(t, err, pipeline.ErrValidation)
	assert.Contains(t, err.Error(), "webTitle")
}
