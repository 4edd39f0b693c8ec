package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const npmsReactBody = `{
  "total": 2,
  "results": [
    {"package": {"name": "react", "version": "18.2.0", "description": "UI library",
      "links": {"npm": "https://www.npmjs.com/package/react"}}},
    {"package": {"name": "react-dom", "version": "18.2.0", "description": "DOM renderer",
      "links": {"npm": "https://www.npmjs.com/package/react-dom"}}}
  ]
}`

func newTestServer(t *testing.T, status int, body string, inspect func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchResults_NPMS(t *testing.T) {
	var gotPath, gotQuery, gotAccept, gotUA string
	srv := newTestServer(t, http.StatusOK, npmsReactBody, func(r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
	})

	g := New(NPMSProvider{}, WithBaseURL(srv.URL), WithUserAgent("test-agent"))
	records, err := g.FetchResults(context.Background(), "react")
	require.NoError(t, err)

	assert.Equal(t, "/v2/search", gotPath)
	assert.Equal(t, "react", gotQuery)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "test-agent", gotUA)

	require.Len(t, records, 2)
	assert.Equal(t, domain.ResultRecord{
		Rank:        0,
		EntityID:    "react-18.2.0",
		Title:       "react",
		Version:     "18.2.0",
		Description: "UI library",
		TargetURL:   "https://www.npmjs.com/package/react",
	}, records[0])
	assert.Equal(t, 1, records[1].Rank)
	assert.Equal(t, "react-dom-18.2.0", records[1].EntityID)
}

func TestFetchResults_EncodesQuery(t *testing.T) {
	var raw string
	srv := newTestServer(t, http.StatusOK, `{"results": []}`, func(r *http.Request) {
		raw = r.URL.RawQuery
	})

	g := New(NPMSProvider{}, WithBaseURL(srv.URL))
	records, err := g.FetchResults(context.Background(), "a b&c=d")
	require.NoError(t, err)

	assert.Empty(t, records)
	assert.Equal(t, "q=a+b%26c%3Dd", raw)
}

func TestFetchResults_Registry(t *testing.T) {
	body := `{"objects": [
	  {"package": {"name": "lodash", "version": "4.17.21", "links": {"npm": "https://www.npmjs.com/package/lodash"}}},
	  {"package": {"name": "left-pad", "version": "1.3.0", "links": {"homepage": "https://github.com/left-pad/left-pad"}}},
	  {"package": {"name": "nolinks", "version": "0.0.1", "links": {"repository": "https://git.example/nolinks"}}}
	]}`
	var gotPath, gotText string
	srv := newTestServer(t, http.StatusOK, body, func(r *http.Request) {
		gotPath = r.URL.Path
		gotText = r.URL.Query().Get("text")
	})

	g := New(RegistryProvider{}, WithBaseURL(srv.URL))
	records, err := g.FetchResults(context.Background(), "pad")
	require.NoError(t, err)

	assert.Equal(t, "/-/v1/search", gotPath)
	assert.Equal(t, "pad", gotText)
	require.Len(t, records, 3)
	assert.Equal(t, "https://www.npmjs.com/package/lodash", records[0].TargetURL)
	assert.Equal(t, "https://github.com/left-pad/left-pad", records[1].TargetURL)
	assert.Equal(t, "https://git.example/nolinks", records[2].TargetURL)
	for i, r := range records {
		assert.Equal(t, i, r.Rank)
	}
}

func TestFetchResults_Errors(t *testing.T) {
	tests := []struct {
		name       string
		provider   Provider
		status     int
		body       string
		wantStatus int
	}{
		{name: "non-2xx", provider: NPMSProvider{}, status: http.StatusBadGateway, body: "upstream down", wantStatus: http.StatusBadGateway},
		{name: "invalid json", provider: NPMSProvider{}, status: http.StatusOK, body: "{not json"},
		{name: "wrong top-level key", provider: NPMSProvider{}, status: http.StatusOK, body: `{"objects": []}`},
		{name: "registry shape on npms key", provider: RegistryProvider{}, status: http.StatusOK, body: `{"results": []}`},
		{name: "hit without package", provider: NPMSProvider{}, status: http.StatusOK, body: `{"results": [{"score": 1}]}`},
		{name: "results not a list", provider: NPMSProvider{}, status: http.StatusOK, body: `{"results": {"a": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body, nil)
			g := New(tt.provider, WithBaseURL(srv.URL))

			records, err := g.FetchResults(context.Background(), "x")
			require.Error(t, err)
			assert.Nil(t, records)

			var perr *ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.provider.Name(), perr.Provider)
			assert.Equal(t, tt.wantStatus, perr.StatusCode)
			assert.True(t, errors.Is(err, ErrProvider))
		})
	}
}

func TestFetchResults_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := New(NPMSProvider{}, WithBaseURL(url))
	_, err := g.FetchResults(context.Background(), "x")

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "request failed", perr.Message)
	assert.Error(t, perr.Unwrap())
}

func TestFetchResults_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	g := New(NPMSProvider{}, WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := g.FetchResults(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrProvider))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("npms")
	require.NoError(t, err)
	assert.Equal(t, ProviderNPMS, p.Name())

	p, err = NewProvider(" Registry ")
	require.NoError(t, err)
	assert.Equal(t, ProviderRegistry, p.Name())

	_, err = NewProvider("bing")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedProvider))
}

func TestSearchURL_TrimsTrailingSlash(t *testing.T) {
	assert.Equal(t, "https://api.npms.io/v2/search?q=react", NPMSProvider{}.SearchURL("https://api.npms.io/", "react"))
	assert.Equal(t, "https://registry.npmjs.org/-/v1/search?text=vue", RegistryProvider{}.SearchURL("https://registry.npmjs.org", "vue"))
}

func TestProviderError_Message(t *testing.T) {
	err := &ProviderError{Provider: "npms", StatusCode: 500, Message: "boom"}
	assert.Equal(t, "provider npms error (500): boom", err.Error())

	err = &ProviderError{Provider: "npms", Message: "malformed response", Err: errors.New("eof")}
	assert.Equal(t, "provider npms error: malformed response: eof", err.Error())
}

func TestWithTimeout_LeavesSharedClientUntouched(t *testing.T) {
	shared := &http.Client{Timeout: 5 * time.Second}

	a := New(NPMSProvider{}, WithHTTPClient(shared), WithTimeout(20*time.Millisecond))
	b := New(NPMSProvider{}, WithTimeout(20*time.Millisecond), WithHTTPClient(shared))

	assert.Equal(t, 5*time.Second, shared.Timeout)
	assert.Equal(t, 20*time.Millisecond, a.httpClient.Timeout)
	assert.Same(t, shared, b.httpClient)
}

func TestFetchResults_ErrorBodyTruncatedOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("é", 300)
	srv := newTestServer(t, http.StatusBadGateway, body, nil)

	g := New(NPMSProvider{}, WithBaseURL(srv.URL))
	_, err := g.FetchResults(context.Background(), "x")

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.True(t, utf8.ValidString(perr.Message))
	assert.Equal(t, 200, utf8.RuneCountInString(perr.Message))
	assert.True(t, strings.HasSuffix(perr.Message, "..."))
}
