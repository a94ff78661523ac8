package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/ragsearch-crawler/internal/query"
	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
	storemem "github.com/JakeFAU/ragsearch-crawler/internal/storage/memory"
)

type stubManager struct {
	startErr  error
	stopErr   error
	statusErr error
	lastURL   string
	lastResch time.Duration
	status    rag.JobStatus
	allStatus []rag.JobStatus
}

func (m *stubManager) Start(_ context.Context, rawURL string, reschedule time.Duration) (rag.JobStatus, error) {
	m.lastURL = rawURL
	m.lastResch = reschedule
	return m.status, m.startErr
}

func (m *stubManager) Stop(string) error { return m.stopErr }

func (m *stubManager) Status(string) (rag.JobStatus, error) { return m.status, m.statusErr }

func (m *stubManager) StatusAll() []rag.JobStatus { return m.allStatus }

type stubEmbedder struct{ vec []float32 }

func (e *stubEmbedder) Embed(context.Context, string) ([]float32, error) { return e.vec, nil }
func (e *stubEmbedder) Dimensions() int                                  { return len(e.vec) }

func newTestServer(t *testing.T, m CrawlManager, p *query.Pipeline, store rag.VectorStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(m, p, store, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestStartCrawl(t *testing.T) {
	mgr := &stubManager{status: rag.JobStatus{Domain: "example.com", State: rag.JobStateRunning}}
	srv := newTestServer(t, mgr, nil, nil)

	body := `{"url":"https://example.com/","reschedule_interval_hours":24}`
	resp, err := http.Post(srv.URL+"/v1/crawl", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "https://example.com/", mgr.lastURL)
	assert.Equal(t, 24*time.Hour, mgr.lastResch)

	var got rag.JobStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, rag.JobStateRunning, got.State)
}

func TestStartCrawlValidation(t *testing.T) {
	srv := newTestServer(t, &stubManager{}, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"not json", `not json`},
		{"negative reschedule", `{"url":"https://example.com/","reschedule_interval_hours":-1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/crawl", "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestStartCrawlConflict(t *testing.T) {
	mgr := &stubManager{startErr: rag.ErrAlreadyRunning}
	srv := newTestServer(t, mgr, nil, nil)

	resp, err := http.Post(srv.URL+"/v1/crawl", "application/json", strings.NewReader(`{"url":"https://example.com/"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStopCrawl(t *testing.T) {
	mgr := &stubManager{status: rag.JobStatus{Domain: "example.com", State: rag.JobStateStopped}}
	srv := newTestServer(t, mgr, nil, nil)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/crawl/example.com", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got rag.JobStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, rag.JobStateStopped, got.State)
}

func TestStopCrawlNotFound(t *testing.T) {
	mgr := &stubManager{stopErr: rag.ErrNotFound}
	srv := newTestServer(t, mgr, nil, nil)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/crawl/nope.com", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCrawlStatusNotFound(t *testing.T) {
	mgr := &stubManager{statusErr: rag.ErrNotFound}
	srv := newTestServer(t, mgr, nil, nil)

	resp, err := http.Get(srv.URL + "/v1/crawl/nope.com/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAllStatus(t *testing.T) {
	mgr := &stubManager{allStatus: []rag.JobStatus{
		{Domain: "a.com", State: rag.JobStateCompleted},
		{Domain: "b.com", State: rag.JobStateRunning},
	}}
	srv := newTestServer(t, mgr, nil, nil)

	resp, err := http.Get(srv.URL + "/v1/crawl/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Jobs []rag.JobStatus `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Jobs, 2)
}

func TestSearch(t *testing.T) {
	store := storemem.NewVectorStore(rag.MetricCosine)
	require.NoError(t, store.Upsert(context.Background(), "kb_example.com", rag.StoredVector{
		ID:      "1",
		Vector:  []float32{1, 0},
		Payload: rag.ChunkPayload{Text: "the answer chunk", URL: "https://example.com/a"},
	}))
	pipeline, err := query.New(&stubEmbedder{vec: []float32{1, 0}}, store, nil, "kb_", 5, zap.NewNop())
	require.NoError(t, err)

	srv := newTestServer(t, &stubManager{}, pipeline, store)

	resp, err := http.Get(srv.URL + "/v1/search?domain=example.com&q=anything")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got rag.QueryResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Matches, 1)
	assert.Equal(t, "the answer chunk", got.Matches[0].Text)
	assert.Empty(t, got.Answer)
}

func TestSearchValidation(t *testing.T) {
	pipeline, err := query.New(&stubEmbedder{vec: []float32{1}}, storemem.NewVectorStore(rag.MetricCosine), nil, "kb_", 5, zap.NewNop())
	require.NoError(t, err)
	srv := newTestServer(t, &stubManager{}, pipeline, nil)

	resp, err := http.Get(srv.URL + "/v1/search?domain=example.com")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchWithoutPipeline(t *testing.T) {
	srv := newTestServer(t, &stubManager{}, nil, nil)

	resp, err := http.Get(srv.URL + "/v1/search?domain=example.com&q=x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &stubManager{}, nil, storemem.NewVectorStore(rag.MetricCosine))

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
