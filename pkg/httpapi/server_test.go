package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bastiangx/heatserve/pkg/config"
	"github.com/bastiangx/heatserve/pkg/suggest"
	"github.com/bastiangx/heatserve/pkg/trie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(*config.ServerConfig)) (*Server, *suggest.Service) {
	t.Helper()
	svc := suggest.New()
	svc.LoadFromRecords([]trie.Entry{
		{Term: "react", Heat: 5},
		{Term: "redux", Heat: 3},
		{Term: "redis", Heat: 3},
		{Term: "python", Heat: 1},
	})
	limits := config.DefaultConfig().Server
	limits.RateLimit = 0
	if mutate != nil {
		mutate(&limits)
	}
	return NewServer(svc, limits), svc
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSearch(t *testing.T) {
	s, svc := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/search?q=RE&k=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[["react",5],["redis",3]]`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// served terms were bumped once each
	h, _, err := svc.Lookup("react")
	require.NoError(t, err)
	assert.Equal(t, 6, h)
	h, _, err = svc.Lookup("redux")
	require.NoError(t, err)
	assert.Equal(t, 3, h)
}

func TestSearchEdgeCases(t *testing.T) {
	s, _ := newTestServer(t, func(l *config.ServerConfig) {
		l.DefaultLimit = 1
		l.MaxLimit = 2
		l.MaxPrefix = 4
	})

	rec := do(t, s, http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/search?q=zzz", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/search?q=re", "")
	var pairs [][]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pairs))
	assert.Len(t, pairs, 1)

	rec = do(t, s, http.MethodGet, "/api/search?q=re&k=50", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pairs))
	assert.Len(t, pairs, 2)

	rec = do(t, s, http.MethodGet, "/api/search?q=re&k=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/search?q=reactive", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchMinPrefix(t *testing.T) {
	s, _ := newTestServer(t, func(l *config.ServerConfig) {
		l.MinPrefix = 3
	})

	rec := do(t, s, http.MethodGet, "/api/search?q=re", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 3")

	rec = do(t, s, http.MethodGet, "/api/search?q=red", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[["redis",3],["redux",3]]`, rec.Body.String())

	// an empty query is still an empty result, not an error
	rec = do(t, s, http.MethodGet, "/api/search?q=", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddTerm(t *testing.T) {
	s, svc := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/terms", `{"term":"Go"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Term added successfully","heat":1}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/terms", `{"term":"go"}`)
	assert.JSONEq(t, `{"message":"Term added successfully","heat":2}`, rec.Body.String())
	assert.Equal(t, 5, svc.Len())

	rec = do(t, s, http.MethodPost, "/api/terms", `{"term":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Term is required"}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/terms", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/terms", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddTermMalformed(t *testing.T) {
	svc := suggest.New(suggest.WithAlphabet(trie.AlphabetLower))
	s := NewServer(svc, config.DefaultConfig().Server)

	rec := do(t, s, http.MethodPost, "/api/terms", `{"term":"c++"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.Len())
}

func TestListTermsAndLookup(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/terms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"term":"react","heat":5},
		{"term":"redis","heat":3},
		{"term":"redux","heat":3},
		{"term":"python","heat":1}
	]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/lookup?q=Python", "")
	assert.JSONEq(t, `{"term":"python","heat":1,"found":true}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/lookup?q=rust", "")
	assert.JSONEq(t, `{"term":"rust","heat":0,"found":false}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/lookup", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInterval(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/interval?q=redi", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pairs [][]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pairs))
	require.NotEmpty(t, pairs)
	assert.Equal(t, "redis", pairs[0][0])

	rec = do(t, s, http.MethodGet, "/api/interval", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealthMetricsAndCORS(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	do(t, s, http.MethodGet, "/api/search?q=r", "")
	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `heatserve_http_requests_total{code="200",method="GET",route="/api/search"} 1`)
	assert.Contains(t, body, "heatserve_index_totalTerms 4")

	rec = do(t, s, http.MethodOptions, "/api/terms", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(l *config.ServerConfig) {
		l.RateLimit = 0.001
		l.RateBurst = 1
	})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/health", "").Code)

	limits := config.DefaultConfig().Server
	limits.RateLimit = 0
	s.SetLimits(limits)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
}

func TestRateLimitZeroBurstStillServes(t *testing.T) {
	s, _ := newTestServer(t, func(l *config.ServerConfig) {
		l.RateLimit = 0.001
		l.RateBurst = 0
	})
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/health", "").Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}
