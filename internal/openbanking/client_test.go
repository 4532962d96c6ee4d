package openbanking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"openbankingbr/internal/cache"
	"openbankingbr/internal/components/chrono"
	"openbankingbr/internal/components/telemetry"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	hits      atomic.Int64
	userAgent atomic.Value
}

func newTestServer(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *testServer {
	t.Helper()
	s := &testServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.userAgent.Store(r.Header.Get("user-agent"))
		handler, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func respond(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func newTestClient(t *testing.T, store cache.Store, directoryUrl string) (*Client, *chrono.FixedImpl, *telemetry.Recorder) {
	t.Helper()
	clock := &chrono.FixedImpl{Time: time.Date(2024, time.August, 26, 10, 0, 0, 0, time.UTC)}
	tel := telemetry.NewRecorder()
	opts := DefaultOptions()
	opts.RateLimit = 0
	opts.Timeout = 5 * time.Second
	opts.DirectoryURL = directoryUrl
	return NewClient(opts, store, clock, tel), clock, tel
}

func newDirStore(t *testing.T) cache.DirStore {
	t.Helper()
	store, err := cache.NewDirStore(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestFetchUsesDayCache(t *testing.T) {
	server := newTestServer(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"/open-banking/channels/v1/branches": respond(`{"data":{"brand":{}}}`),
	})
	client, clock, tel := newTestClient(t, newDirStore(t), "")
	ctx := context.Background()
	endpoint := server.URL + "/open-banking/channels/v1/branches"

	body, err := client.Fetch(ctx, "org-a", endpoint)
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"brand":{}}}`, string(body))
	require.Equal(t, int64(1), server.hits.Load())
	require.Equal(t, fmt.Sprintf("OpenBankingBR/%s", Version), server.userAgent.Load())

	cached, err := client.Fetch(ctx, "org-a", endpoint)
	require.NoError(t, err)
	require.Equal(t, body, cached)
	require.Equal(t, int64(1), server.hits.Load())

	// another participant has its own entries
	_, err = client.Fetch(ctx, "org-b", endpoint)
	require.NoError(t, err)
	require.Equal(t, int64(2), server.hits.Load())

	clock.Advance(24 * time.Hour)
	_, err = client.Fetch(ctx, "org-a", endpoint)
	require.NoError(t, err)
	require.Equal(t, int64(3), server.hits.Load())

	// counts are only reported when asked for
	_, ok := tel.Count("openbanking: " + report_client_cache_hits)
	require.False(t, ok)
	require.Equal(t, Stats{Requests: 3, CacheHits: 1}, client.ReportStats())
	hits, ok := tel.Count("openbanking: " + report_client_cache_hits)
	require.True(t, ok)
	require.Equal(t, int64(1), hits)
	requests, _ := tel.Count("openbanking: " + report_client_requests)
	require.Equal(t, int64(3), requests)
}

func TestFetchErrors(t *testing.T) {
	server := newTestServer(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"/html": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>maintenance</html>"))
		},
		"/unavailable": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"errors":[]}`))
		},
	})
	client, _, _ := newTestClient(t, newDirStore(t), "")
	ctx := context.Background()

	testCases := []struct {
		path   string
		expect error
	}{
		{path: "/html", expect: ErrInvalidPayload},
		{path: "/unavailable", expect: ErrHTTPStatus},
		{path: "/missing", expect: ErrHTTPStatus},
	}

	for _, test := range testCases {
		before := server.hits.Load()
		_, err := client.Fetch(ctx, "org-a", server.URL+test.path)
		require.ErrorIs(t, err, test.expect, test.path)

		// failures are never cached
		_, err = client.Fetch(ctx, "org-a", server.URL+test.path)
		require.ErrorIs(t, err, test.expect, test.path)
		require.Equal(t, before+2, server.hits.Load(), test.path)
	}

	var statusErr StatusError
	_, err := client.Fetch(ctx, "org-a", server.URL+"/unavailable")
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

type brokenStore struct {
	cache.NopStore
	getErr error
	putErr error
	puts   int
}

func (s *brokenStore) Get(context.Context, cache.Key) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return nil, cache.ErrNotFound
}

func (s *brokenStore) Put(context.Context, cache.Key, []byte) error {
	s.puts++
	return s.putErr
}

func TestFetchSurvivesBrokenCache(t *testing.T) {
	server := newTestServer(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"/ok": respond(`{"data":{}}`),
	})
	store := &brokenStore{
		getErr: errors.New("disk on fire"),
		putErr: errors.New("disk full"),
	}
	client, _, tel := newTestClient(t, store, "")

	body, err := client.Fetch(context.Background(), "org-a", server.URL+"/ok")
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{}}`, string(body))
	require.Equal(t, 1, store.puts)

	warnings := tel.Reports("warning", report_client_fetch)
	require.Len(t, warnings, 2)
	require.ErrorContains(t, warnings[0].Params[0].(error), "disk on fire")
	require.ErrorContains(t, warnings[1].Params[0].(error), "disk full")
}

func TestFetchSelfSignedCertificate(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(respond(`{"data":{}}`)))
	t.Cleanup(server.Close)

	testCases := []struct {
		name       string
		insecure   bool
		cloudflare bool
		ok         bool
	}{
		{name: "verified"},
		{name: "verified with cloudflare bypass", cloudflare: true},
		{name: "insecure", insecure: true, ok: true},
		{name: "insecure with cloudflare bypass", insecure: true, cloudflare: true, ok: true},
	}

	for _, test := range testCases {
		opts := DefaultOptions()
		opts.RateLimit = 0
		opts.Timeout = 5 * time.Second
		opts.InsecureSkipVerify = test.insecure
		opts.CloudflareBypass = test.cloudflare
		clock := &chrono.FixedImpl{Time: time.Date(2024, time.August, 26, 10, 0, 0, 0, time.UTC)}
		client := NewClient(opts, cache.NopStore{}, clock, telemetry.NewRecorder())

		_, err := client.Fetch(context.Background(), "org-a", server.URL+"/"+strings.ReplaceAll(test.name, " ", "-"))
		if test.ok {
			require.NoError(t, err, test.name)
			continue
		}
		require.ErrorContains(t, err, "certificate", test.name)
	}
}

func TestFetchPages(t *testing.T) {
	var server *testServer
	server = newTestServer(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"/branches": func(w http.ResponseWriter, r *http.Request) {
			page := r.URL.Query().Get("page")
			var next string
			switch page {
			case "", "1":
				page = "1"
				next = server.URL + "/branches?page=2"
			case "2":
				next = server.URL + "/branches?page=3"
			case "3":
				// links back to the first page
				next = server.URL + "/branches?page=2"
			}
			fmt.Fprintf(w, `{"data":{"page":%q},"links":{"next":%q}}`, page, next)
		},
		"/relative": respond(`{"data":{"page":"1"},"links":{"next":"/relative?page=2"}}`),
		"/no-data":  respond(`{"links":{"next":null}}`),
		"/array":    respond(`[{"data":{}}]`),
		"/null":     respond(`null`),
	})
	client, _, _ := newTestClient(t, newDirStore(t), "")
	ctx := context.Background()

	pages, err := client.FetchPages(ctx, "org-a", server.URL+"/branches")
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for i, page := range pages {
		require.Equal(t, fmt.Sprint(i+1), page.Data["page"])
	}
	require.Equal(t, server.URL+"/branches", pages[0].Endpoint)
	require.Equal(t, server.URL+"/branches?page=3", pages[2].Endpoint)

	pages, err = client.FetchPages(ctx, "org-a", server.URL+"/relative")
	require.NoError(t, err)
	require.Len(t, pages, 1)

	pages, err = client.FetchPages(ctx, "org-a", server.URL+"/no-data")
	require.NoError(t, err)
	require.Empty(t, pages)

	_, err = client.FetchPages(ctx, "org-a", server.URL+"/array")
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = client.FetchPages(ctx, "org-a", server.URL+"/null")
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestFetchPagesLimit(t *testing.T) {
	var server *testServer
	server = newTestServer(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"/endless": func(w http.ResponseWriter, r *http.Request) {
			page := r.URL.Query().Get("page")
			next := server.URL + "/endless?page=" + page + "0"
			fmt.Fprintf(w, `{"data":{},"links":{"next":%q}}`, next)
		},
	})
	client, _, tel := newTestClient(t, cache.NopStore{}, "")

	pages, err := client.FetchPages(context.Background(), "org-a", server.URL+"/endless?page=1")
	require.NoError(t, err)
	require.Len(t, pages, MaxPages)
	require.Len(t, tel.Reports("warning", report_client_fetch_pages), 1)
}

func TestDirectory(t *testing.T) {
	server := newTestServer(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"/participants": respond(`[
			{"OrganisationId": "a", "OrganisationName": "Banco A"},
			"garbage",
			{"OrganisationId": "b", "OrganisationName": "Banco B"}
		]`),
		"/object": respond(`{"participants":[]}`),
	})
	ctx := context.Background()

	store := newDirStore(t)
	client, _, tel := newTestClient(t, store, server.URL+"/participants")
	entries, err := client.Directory(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "Banco B", entries[1]["OrganisationName"])
	require.Len(t, tel.Reports("warning", report_client_directory), 1)

	// the directory is cached under its own participant key
	key, err := cache.NewKey(server.URL+"/participants", DirectoryParticipant, "20240826")
	require.NoError(t, err)
	cached, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(cached), "Banco A"))

	client, _, _ = newTestClient(t, newDirStore(t), server.URL+"/object")
	_, err = client.Directory(ctx)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestNextLink(t *testing.T) {
	testCases := []struct {
		raw    any
		expect string
		ok     bool
	}{
		{raw: "https://api.banco.com.br/branches?page=2", expect: "https://api.banco.com.br/branches?page=2", ok: true},
		{raw: "http://api.banco.com.br/branches?page=2", expect: "http://api.banco.com.br/branches?page=2", ok: true},
		{raw: "/branches?page=2", ok: false},
		{raw: "ftp://api.banco.com.br/branches", ok: false},
		{raw: "", ok: false},
		{raw: nil, ok: false},
		{raw: 2.0, ok: false},
	}
	for _, test := range testCases {
		next, ok := nextLink(test.raw)
		require.Equal(t, test.ok, ok, test.raw)
		require.Equal(t, test.expect, next)
	}
}
